package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

const (
	inviteCodeLength   = 8
	inviteCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxCodeAttempts    = 5
	MaxInviteBatch     = 500
)

// InviteService implements invite issuance and single-use redemption.
type InviteService struct {
	repo        ports.InviteRepository
	defaultDays int
	logger      zerolog.Logger

	now     func() time.Time
	newCode func() (string, error)
}

func NewInviteService(repo ports.InviteRepository, defaultDays int, logger zerolog.Logger) *InviteService {
	if defaultDays <= 0 {
		defaultDays = domain.DefaultInviteValidityDays
	}
	return &InviteService{
		repo:        repo,
		defaultDays: defaultDays,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newCode:     generateInviteCode,
	}
}

// Create stores a fresh invite valid for validityDays (0 selects the default).
// A code that collides with a stored one is regenerated.
func (s *InviteService) Create(ctx context.Context, validityDays int) (*domain.Invite, error) {
	if validityDays < 0 {
		return nil, fmt.Errorf("%w: validity must be positive", domain.ErrInvalidInput)
	}
	if validityDays == 0 {
		validityDays = s.defaultDays
	}

	expiration := s.now().AddDate(0, 0, validityDays)
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}

		invite := &domain.Invite{Code: code, ExpirationDate: expiration}
		err = s.repo.Create(ctx, invite)
		if err == nil {
			s.logger.Info().Str("code", code).Time("expires", expiration).Msg("invite created")
			return invite, nil
		}
		if !errors.Is(err, domain.ErrDuplicateInvite) {
			s.logger.Error().Err(err).Msg("failed to create invite")
			return nil, storeErr("create invite", err)
		}
		s.logger.Debug().Str("code", code).Int("attempt", attempt).Msg("invite code collision, regenerating")
	}
	return nil, fmt.Errorf("create invite: %w after %d attempts", domain.ErrDuplicateInvite, maxCodeAttempts)
}

// CreateBatch issues count invites with the same validity. On failure the
// invites created so far are returned along with the error.
func (s *InviteService) CreateBatch(ctx context.Context, count, validityDays int) ([]*domain.Invite, error) {
	if count <= 0 || count > MaxInviteBatch {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidInput, MaxInviteBatch)
	}

	invites := make([]*domain.Invite, 0, count)
	for range count {
		invite, err := s.Create(ctx, validityDays)
		if err != nil {
			return invites, err
		}
		invites = append(invites, invite)
	}
	return invites, nil
}

// Consume redeems code and returns a ticket for exactly one registration.
// The expiration and used flags are checked before the conditional flip, which
// repeats both conditions and alone decides between concurrent consumers.
func (s *InviteService) Consume(ctx context.Context, code string) (*domain.Ticket, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, domain.ErrInvalidInviteCode
	}

	invite, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInviteCode) {
			return nil, err
		}
		return nil, storeErr("find invite", err)
	}

	now := s.now()
	if invite.IsExpired(now) {
		return nil, domain.ErrInviteExpired
	}
	if invite.Used {
		return nil, domain.ErrInviteAlreadyUsed
	}

	won, err := s.repo.MarkUsed(ctx, code, now)
	if err != nil {
		return nil, storeErr("consume invite", err)
	}
	if !won {
		return nil, s.classifyMiss(ctx, code, now)
	}

	s.logger.Info().Str("code", code).Msg("invite consumed")
	return &domain.Ticket{InviteCode: code, IssuedAt: now}, nil
}

// classifyMiss re-reads an invite whose flip matched no row.
func (s *InviteService) classifyMiss(ctx context.Context, code string, now time.Time) error {
	invite, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInviteCode) {
			return err
		}
		return storeErr("reload invite", err)
	}
	if invite.IsExpired(now) {
		s.logger.Info().Str("code", code).Msg("invite expired before consumption")
		return domain.ErrInviteExpired
	}
	s.logger.Info().Str("code", code).Msg("invite consumed concurrently")
	return domain.ErrInviteAlreadyUsed
}

// Release gives back a ticket whose account creation failed.
func (s *InviteService) Release(ctx context.Context, ticket *domain.Ticket) error {
	if ticket == nil {
		return nil
	}
	if err := s.repo.Release(ctx, ticket.InviteCode); err != nil {
		return storeErr("release invite", err)
	}
	s.logger.Info().Str("code", ticket.InviteCode).Msg("invite released")
	return nil
}

func (s *InviteService) List(ctx context.Context) ([]*domain.Invite, error) {
	invites, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr("list invites", err)
	}
	return invites, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// generateInviteCode returns 8 uppercase base-36 characters.
func generateInviteCode() (string, error) {
	const limit = 256 - 256%len(inviteCodeAlphabet)

	out := make([]byte, 0, inviteCodeLength)
	buf := make([]byte, inviteCodeLength*2)
	for len(out) < inviteCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)])
			if len(out) == inviteCodeLength {
				break
			}
		}
	}
	return string(out), nil
}
