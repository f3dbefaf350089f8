package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

// UserService implements the account registry.
type UserService struct {
	repo   ports.UserRepository
	hasher PasswordHasher
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo ports.UserRepository, hasher PasswordHasher, logger zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register opens an account authorized by ticket. Username uniqueness is left
// to the store's unique constraint.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput, ticket *domain.Ticket) (*domain.User, error) {
	if ticket == nil {
		return nil, domain.ErrInvalidInviteCode
	}
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(in.Username),
		Password:     hash,
		ExternalID:   in.ExternalID,
		InviteCode:   ticket.InviteCode,
		Status:       domain.StatusActive,
		RegisterDate: s.now(),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", user.Username).Msg("failed to create user")
		return nil, storeErr("create user", err)
	}

	s.logger.Info().Int64("uid", created.UID).Str("username", created.Username).Str("code", created.InviteCode).Msg("user registered")
	return created, nil
}

// Exists reports whether username is already registered. Callers may use it
// to fail early; it does not guard against concurrent registrations.
func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	_, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return false, nil
	default:
		return false, storeErr("find user", err)
	}
}

func (s *UserService) SetStatus(ctx context.Context, uid int64, status domain.UserStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	if err := s.repo.SetStatus(ctx, uid, status); err != nil {
		return s.mapLookupErr("set status", err)
	}
	s.logger.Info().Int64("uid", uid).Str("status", string(status)).Msg("user status updated")
	return nil
}

func (s *UserService) ResetHWID(ctx context.Context, uid int64) error {
	if err := s.repo.ResetHWID(ctx, uid); err != nil {
		return s.mapLookupErr("reset hwid", err)
	}
	s.logger.Info().Int64("uid", uid).Msg("hwid reset")
	return nil
}

func (s *UserService) Get(ctx context.Context, uid int64) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, s.mapLookupErr("get user", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

func (s *UserService) mapLookupErr(op string, err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return storeErr(op, err)
}

func validateRegistration(in ports.RegisterInput) error {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.ExternalID) == "" {
		return fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}
	return nil
}
