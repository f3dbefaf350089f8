package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safedev/accessgate/internal/core/domain"
)

var ErrUnknownRole = errors.New("role must be owner or support")

// AdminClaims are the claims carried by admin bearer tokens.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IssueToken mints an HS256 admin token for subject with the given role.
func IssueToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	if role != domain.RoleOwner && role != domain.RoleSupport {
		return "", ErrUnknownRole
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	})
	return token.SignedString(secret)
}
