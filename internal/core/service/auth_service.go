package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

// maxDecisionRounds bounds how often a login is re-evaluated after losing a
// conditional update to a concurrent writer.
const maxDecisionRounds = 3

// AuthService decides login attempts and binds the first-seen HWID.
type AuthService struct {
	repo    ports.UserRepository
	hasher  PasswordHasher
	limiter ports.LoginLimiter
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAuthService returns an AuthService. A nil limiter disables throttling.
func NewAuthService(repo ports.UserRepository, hasher PasswordHasher, limiter ports.LoginLimiter, logger zerolog.Logger) *AuthService {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	return &AuthService{
		repo:    repo,
		hasher:  hasher,
		limiter: limiter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate returns the user on success, or one of
// domain.ErrInvalidCredentials, domain.ErrForbidden, domain.ErrHwidMismatch,
// domain.ErrTooManyTries or a store failure.
func (s *AuthService) Authenticate(ctx context.Context, in ports.AuthInput) (*domain.User, error) {
	key := in.Username + "|" + in.ClientIP

	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("username", in.Username).Msg("login limiter check failed, continuing")
	} else if !allowed {
		return nil, domain.ErrTooManyTries
	}

	user, err := s.decide(ctx, in)
	switch {
	case err == nil:
		if resetErr := s.limiter.Reset(ctx, key); resetErr != nil {
			s.logger.Warn().Err(resetErr).Str("username", in.Username).Msg("failed to reset login limiter")
		}
	case errors.Is(err, domain.ErrInvalidCredentials):
		if recErr := s.limiter.RecordFailure(ctx, key); recErr != nil {
			s.logger.Warn().Err(recErr).Str("username", in.Username).Msg("failed to record login failure")
		}
	}
	return user, err
}

func (s *AuthService) decide(ctx context.Context, in ports.AuthInput) (*domain.User, error) {
	// 1. Credentials. Unknown users and wrong passwords are indistinguishable.
	user, err := s.repo.FindByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.CompareMissing(in.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storeErr("find user", err)
	}
	if !s.hasher.Compare(user.Password, in.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	for round := 0; round < maxDecisionRounds; round++ {
		// 2. Banned accounts never authenticate.
		if user.IsBanned() {
			s.logger.Info().Int64("uid", user.UID).Msg("login rejected: banned")
			return nil, domain.ErrForbidden
		}

		now := s.now()
		var updated bool
		switch {
		case !user.HasHWID():
			// 3. First use: bind.
			updated, err = s.repo.BindHWID(ctx, user.UID, in.HWID, now)
			if err != nil {
				return nil, storeErr("bind hwid", err)
			}
			if updated {
				hwid := in.HWID
				user.HWID = &hwid
				user.LastLogin = &now
				s.logger.Info().Int64("uid", user.UID).Msg("hwid bound")
				return user, nil
			}
		case user.HWIDMatches(in.HWID):
			// 4. Known device.
			updated, err = s.repo.TouchLogin(ctx, user.UID, in.HWID, now)
			if err != nil {
				return nil, storeErr("touch login", err)
			}
			if updated {
				user.LastLogin = &now
				s.logger.Debug().Int64("uid", user.UID).Msg("login accepted")
				return user, nil
			}
		default:
			// 5. Different device.
			s.logger.Info().Int64("uid", user.UID).Msg("login rejected: hwid mismatch")
			return nil, domain.ErrHwidMismatch
		}

		// The row changed underneath us (bind race, reset or ban). Re-read and re-evaluate.
		user, err = s.repo.FindByID(ctx, user.UID)
		if err != nil {
			return nil, storeErr("reload user", err)
		}
	}

	s.logger.Warn().Int64("uid", user.UID).Msg("login gave up after repeated concurrent updates")
	return nil, domain.ErrStoreConflict
}

// NopLimiter never throttles.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (NopLimiter) RecordFailure(context.Context, string) error { return nil }
func (NopLimiter) Reset(context.Context, string) error         { return nil }
