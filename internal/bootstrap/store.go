// Package bootstrap wires configuration, storage and services into a runnable
// process. Both the HTTP server and gatectl build on it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/core/ports"
	"github.com/safedev/accessgate/internal/infrastructure/config"
	mongostore "github.com/safedev/accessgate/internal/infrastructure/db/mongo"
	"github.com/safedev/accessgate/internal/infrastructure/db/sqlstore"
)

// Store is the backend-neutral handle the rest of the process depends on.
type Store struct {
	Driver  string
	Users   ports.UserRepository
	Invites ports.InviteRepository

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

func (s *Store) Ping(ctx context.Context) error { return s.ping(ctx) }

// Migrate brings the schema up to date. Mongo only needs its indexes, which
// are created on open.
func (s *Store) Migrate(ctx context.Context) error { return s.migrate(ctx) }

func (s *Store) Close(ctx context.Context) error { return s.close(ctx) }

// OpenStore connects to the backend selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		return openSQL(ctx, cfg.Store.Driver, sqlstore.SQLite, sqliteDSN(cfg.Store.SQLitePath), log)
	case config.DriverPostgres:
		return openSQL(ctx, cfg.Store.Driver, sqlstore.Postgres, cfg.Store.PostgresDSN, log)
	case config.DriverMongo:
		st, err := mongostore.Open(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", cfg.Store.Driver).Str("database", cfg.Mongo.Database).Msg("store opened")
		return &Store{
			Driver:  cfg.Store.Driver,
			Users:   st.Users(),
			Invites: st.Invites(),
			ping:    st.Ping,
			migrate: func(context.Context) error { return nil },
			close:   st.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openSQL(ctx context.Context, driver string, dialect sqlstore.Dialect, dsn string, log zerolog.Logger) (*Store, error) {
	st, err := sqlstore.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", driver).Msg("store opened")
	return &Store{
		Driver:  driver,
		Users:   st.Users(),
		Invites: st.Invites(),
		ping:    st.Ping,
		migrate: st.Migrate,
		close:   func(context.Context) error { return st.Close() },
	}, nil
}

// sqliteDSN enables a busy timeout so concurrent writers wait instead of failing.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
