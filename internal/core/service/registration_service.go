package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

// RegistrationService redeems an invite and opens the account it authorizes.
type RegistrationService struct {
	invites ports.InviteService
	users   ports.UserService
	logger  zerolog.Logger
}

func NewRegistrationService(invites ports.InviteService, users ports.UserService, logger zerolog.Logger) *RegistrationService {
	return &RegistrationService{invites: invites, users: users, logger: logger}
}

// Register consumes in.InviteCode and creates the user. When creation is
// rejected after the invite was consumed, the ticket is released so the code
// stays usable. A store failure keeps the invite burned, since the insert may
// have committed.
func (s *RegistrationService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	// 1. Fast rejection of taken usernames. The unique constraint still decides races.
	taken, err := s.users.Exists(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrUsernameTaken
	}

	// 2. Redeem the invite.
	ticket, err := s.invites.Consume(ctx, in.InviteCode)
	if err != nil {
		return nil, err
	}

	// 3. Create the account; compensate on rejection.
	user, err := s.users.Register(ctx, in, ticket)
	if err != nil {
		if !releasable(err) {
			s.logger.Error().Err(err).Str("code", ticket.InviteCode).Str("username", in.Username).
				Msg("registration outcome unknown, invite kept consumed")
			return nil, err
		}
		if relErr := s.invites.Release(ctx, ticket); relErr != nil {
			s.logger.Warn().Err(relErr).Str("code", ticket.InviteCode).Msg("failed to release invite after registration error")
		}
		return nil, err
	}
	return user, nil
}

// releasable reports whether err proves no account was written.
func releasable(err error) bool {
	return errors.Is(err, domain.ErrUsernameTaken) || errors.Is(err, domain.ErrInvalidInput)
}
