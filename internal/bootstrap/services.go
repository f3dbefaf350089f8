package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/ports"
	"github.com/safedev/accessgate/internal/core/service"
	"github.com/safedev/accessgate/internal/infrastructure/config"
	redisstore "github.com/safedev/accessgate/internal/infrastructure/db/redis"
	"github.com/safedev/accessgate/pkg/logger"
)

// Services is the core service graph over one store.
type Services struct {
	Invites      *service.InviteService
	Users        *service.UserService
	Registration *service.RegistrationService
	Auth         *service.AuthService
}

// NewServices builds the services. limiter may be nil to disable throttling.
func NewServices(store *Store, cfg *config.Config, limiter ports.LoginLimiter) (*Services, error) {
	hasher, err := service.NewPasswordHasher(cfg.Auth.PasswordMode, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}

	invites := service.NewInviteService(store.Invites, cfg.Auth.InviteDefaultDays, logger.Component("invites"))
	users := service.NewUserService(store.Users, hasher, logger.Component("users"))
	return &Services{
		Invites:      invites,
		Users:        users,
		Registration: service.NewRegistrationService(invites, users, logger.Component("registration")),
		Auth:         service.NewAuthService(store.Users, hasher, limiter, logger.Component("auth")),
	}, nil
}

// Limiter holds the optional Redis login limiter and its client.
type Limiter struct {
	*redisstore.LoginLimiter
	ping  func(ctx context.Context) error
	close func() error
}

// OpenLimiter connects to Redis when rate limiting is enabled; it returns nil otherwise.
func OpenLimiter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	client, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	log.Info().
		Str("addr", cfg.Redis.Addr).
		Int("max_failures", cfg.RateLimit.MaxFailures).
		Dur("window", cfg.RateLimit.Window).
		Msg("login rate limiting enabled")
	return &Limiter{
		LoginLimiter: redisstore.NewLoginLimiter(client, cfg.RateLimit.MaxFailures, cfg.RateLimit.Window),
		ping:         func(ctx context.Context) error { return client.Ping(ctx).Err() },
		close:        client.Close,
	}, nil
}
