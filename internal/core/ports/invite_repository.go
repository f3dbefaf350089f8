package ports

import (
	"context"
	"time"

	"github.com/safedev/accessgate/internal/core/domain"
)

// InviteRepository defines persistence operations for invite codes.
type InviteRepository interface {
	// Create inserts an invite. Returns domain.ErrDuplicateInvite when the code exists.
	Create(ctx context.Context, invite *domain.Invite) error
	// FindByCode returns domain.ErrInvalidInviteCode when absent.
	FindByCode(ctx context.Context, code string) (*domain.Invite, error)
	// MarkUsed flips used from false to true provided the invite has not
	// expired at now. It reports whether this call won the flip.
	MarkUsed(ctx context.Context, code string, now time.Time) (bool, error)
	// Release flips used from true back to false for a ticket whose user creation failed.
	Release(ctx context.Context, code string) error
	List(ctx context.Context) ([]*domain.Invite, error)
}
