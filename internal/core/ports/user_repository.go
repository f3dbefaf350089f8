package ports

import (
	"context"
	"time"

	"github.com/safedev/accessgate/internal/core/domain"
)

// UserRepository defines persistence operations for accounts.
//
// Implementations must enforce username uniqueness natively and implement the
// conditional updates as single atomic statements.
type UserRepository interface {
	// Create inserts user and returns it with its assigned UID.
	// Returns domain.ErrUsernameTaken on a unique violation.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, uid int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)

	// SetStatus overwrites the status. Returns domain.ErrUserNotFound when no row matched.
	SetStatus(ctx context.Context, uid int64, status domain.UserStatus) error
	// ResetHWID clears the bound device. Returns domain.ErrUserNotFound when no row matched.
	ResetHWID(ctx context.Context, uid int64) error

	// BindHWID sets hwid and last_login only if the account is active and has
	// no device bound yet. It reports whether a row was updated.
	BindHWID(ctx context.Context, uid int64, hwid string, at time.Time) (bool, error)
	// TouchLogin sets last_login only if the account is active and bound to hwid.
	// It reports whether a row was updated.
	TouchLogin(ctx context.Context, uid int64, hwid string, at time.Time) (bool, error)
}
