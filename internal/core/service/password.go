package service

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/safedev/accessgate/internal/core/domain"
)

const (
	PasswordModeBcrypt = "bcrypt"
	PasswordModePlain  = "plain"
)

// PasswordHasher hides how credentials are stored.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(stored, password string) bool
	// CompareMissing burns roughly the same time as Compare for accounts that
	// do not exist, so both rejections look alike from outside.
	CompareMissing(password string)
}

// NewPasswordHasher returns the hasher for mode ("bcrypt" or "plain").
func NewPasswordHasher(mode string, cost int) (PasswordHasher, error) {
	switch mode {
	case "", PasswordModeBcrypt:
		return NewBcryptHasher(cost)
	case PasswordModePlain:
		return PlainHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown password mode %q", mode)
	}
}

// BcryptHasher stores bcrypt hashes.
type BcryptHasher struct {
	cost  int
	dummy []byte
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("accessgate-dummy"), cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}
	return &BcryptHasher{cost: cost, dummy: dummy}, nil
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrInvalidInput)
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

func (h *BcryptHasher) CompareMissing(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

// PlainHasher keeps passwords as-is, matching databases created before
// hashing was introduced. Comparison is byte-for-byte in constant time.
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) { return password, nil }

func (PlainHasher) Compare(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func (PlainHasher) CompareMissing(password string) {
	_ = subtle.ConstantTimeCompare([]byte(password), []byte(password))
}
