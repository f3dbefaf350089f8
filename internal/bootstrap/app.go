package bootstrap

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/api"
	"github.com/safedev/accessgate/internal/core/ports"
	"github.com/safedev/accessgate/internal/infrastructure/config"
	httpserver "github.com/safedev/accessgate/internal/infrastructure/http"
	"github.com/safedev/accessgate/internal/infrastructure/http/handlers"
	"github.com/safedev/accessgate/internal/infrastructure/queue"
	"github.com/safedev/accessgate/pkg/logger"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set to serve admin routes")

// App holds every long-lived component of the HTTP server process.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Store      *Store
	Limiter    *Limiter
	Services   *Services
	Dispatcher *queue.Dispatcher
	Server     *httpserver.Server
}

// NewApp opens the store, applies migrations and builds the HTTP surface.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	proxies, err := cfg.TrustedProxyRanges()
	if err != nil {
		return nil, err
	}
	log := logger.Component("bootstrap")

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	limiter, err := OpenLimiter(ctx, cfg, log)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	var loginLimiter ports.LoginLimiter
	checks := map[string]handlers.PingFunc{"store": store.Ping}
	if limiter != nil {
		loginLimiter = limiter
		checks["redis"] = limiter.ping
	}

	services, err := NewServices(store, cfg, loginLimiter)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	dispatcher := queue.NewDispatcher(cfg.Auth.LoginWorkers, services.Auth, logger.Component("dispatcher"))
	router := api.NewRouter(api.Dependencies{
		Auth:           dispatcher,
		Registration:   services.Registration,
		Invites:        services.Invites,
		Users:          services.Users,
		JWTSecret:      cfg.JWTSecret,
		HealthChecks:   checks,
		Logger:         logger.Component("http"),
		TrustedProxies: proxies,
	})

	return &App{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Limiter:    limiter,
		Services:   services,
		Dispatcher: dispatcher,
		Server:     httpserver.NewServer(router, ":"+cfg.Port, logger.Component("http")),
	}, nil
}

// Run serves until ctx is cancelled and in-flight requests have drained.
// Login workers keep running until Shutdown.
func (a *App) Run(ctx context.Context) error {
	a.Dispatcher.Start()
	return a.Server.Run(ctx)
}

// Shutdown stops the login workers, then releases the store and Redis
// connections. Call it after Run has returned.
func (a *App) Shutdown(ctx context.Context) {
	a.Dispatcher.Stop()
	if a.Limiter != nil {
		if err := a.Limiter.close(); err != nil {
			a.Log.Error().Err(err).Msg("closing redis")
		}
	}
	if err := a.Store.Close(ctx); err != nil {
		a.Log.Error().Err(err).Msg("closing store")
	}
	a.Log.Info().Msg("shutdown complete")
}
