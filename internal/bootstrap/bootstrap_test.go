package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
	"github.com/safedev/accessgate/internal/infrastructure/config"
	"github.com/safedev/accessgate/internal/infrastructure/queue"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{Port: "0", JWTSecret: "secret"}
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.SQLitePath = ":memory:"
	cfg.Auth.PasswordMode = "plain"
	cfg.Auth.InviteDefaultDays = 7
	cfg.Auth.LoginWorkers = 2
	return cfg
}

func TestSQLiteDSN(t *testing.T) {
	require.Equal(t, ":memory:", sqliteDSN(":memory:"))
	require.Equal(t, "file:./users.sqlite?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", sqliteDSN("./users.sqlite"))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Driver = "oracle"
	_, err := OpenStore(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestServices_OverSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	store, err := OpenStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Ping(ctx))

	svcs, err := NewServices(store, cfg, nil)
	require.NoError(t, err)

	inv, err := svcs.Invites.Create(ctx, 0)
	require.NoError(t, err)

	user, err := svcs.Registration.Register(ctx, ports.RegisterInput{
		Username: "alice", Password: "pw", InviteCode: inv.Code, ExternalID: "42",
	})
	require.NoError(t, err)
	require.Equal(t, inv.Code, user.InviteCode)

	_, err = svcs.Auth.Authenticate(ctx, ports.AuthInput{Username: "alice", Password: "pw", HWID: "H1"})
	require.NoError(t, err)
	_, err = svcs.Auth.Authenticate(ctx, ports.AuthInput{Username: "alice", Password: "pw", HWID: "H2"})
	require.ErrorIs(t, err, domain.ErrHwidMismatch)
}

func TestNewServices_BadPasswordMode(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.PasswordMode = "md5"
	_, err := NewServices(&Store{}, cfg, nil)
	require.Error(t, err)
}

func TestNewApp(t *testing.T) {
	ctx := context.Background()

	cfg := memoryConfig()
	cfg.JWTSecret = ""
	_, err := NewApp(ctx, cfg)
	require.True(t, errors.Is(err, ErrMissingJWTSecret))

	app, err := NewApp(ctx, memoryConfig())
	require.NoError(t, err)
	require.NotNil(t, app.Server)
	require.Nil(t, app.Limiter)
	app.Shutdown(ctx)
}

func TestApp_LoginsServedUntilShutdown(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig())
	require.NoError(t, err)

	inv, err := app.Services.Invites.Create(ctx, 0)
	require.NoError(t, err)
	_, err = app.Services.Registration.Register(ctx, ports.RegisterInput{
		Username: "alice", Password: "pw", InviteCode: inv.Code, ExternalID: "42",
	})
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	require.NoError(t, app.Run(runCtx))

	// Run has returned but workers stay up while the process shuts down.
	loginCtx, loginCancel := context.WithTimeout(ctx, 2*time.Second)
	defer loginCancel()
	_, err = app.Dispatcher.Authenticate(loginCtx, ports.AuthInput{Username: "alice", Password: "pw", HWID: "H1"})
	require.NoError(t, err)

	app.Shutdown(ctx)
	_, err = app.Dispatcher.Authenticate(ctx, ports.AuthInput{Username: "alice", Password: "pw", HWID: "H1"})
	require.ErrorIs(t, err, queue.ErrStopped)
}
