package ports

import (
	"context"

	"github.com/safedev/accessgate/internal/core/domain"
)

// InviteService issues and redeems invite codes.
type InviteService interface {
	Create(ctx context.Context, validityDays int) (*domain.Invite, error)
	CreateBatch(ctx context.Context, count, validityDays int) ([]*domain.Invite, error)
	Consume(ctx context.Context, code string) (*domain.Ticket, error)
	Release(ctx context.Context, ticket *domain.Ticket) error
	List(ctx context.Context) ([]*domain.Invite, error)
}

// UserService manages accounts.
type UserService interface {
	Register(ctx context.Context, in RegisterInput, ticket *domain.Ticket) (*domain.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	SetStatus(ctx context.Context, uid int64, status domain.UserStatus) error
	ResetHWID(ctx context.Context, uid int64) error
	Get(ctx context.Context, uid int64) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// RegistrationService redeems an invite and creates the account in one call.
type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
}

// AuthService runs the login decision procedure.
type AuthService interface {
	Authenticate(ctx context.Context, in AuthInput) (*domain.User, error)
}

// RegisterInput carries the data needed to open an account.
type RegisterInput struct {
	Username   string
	Password   string
	InviteCode string
	ExternalID string
}

// AuthInput carries one login attempt.
type AuthInput struct {
	Username string
	Password string
	HWID     string
	// ClientIP is only used for brute-force accounting.
	ClientIP string
}

// LoginLimiter throttles repeated failed logins per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
