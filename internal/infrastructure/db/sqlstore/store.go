// Package sqlstore implements the user and invite repositories on
// database/sql, for SQLite (modernc) and PostgreSQL (pgx). Schema changes
// are applied with goose from embedded migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/pkg/logger"
)

const queryTimeout = 5 * time.Second

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the connection pool and vends repositories bound to it.
type Store struct {
	db      *sql.DB
	dialect Dialect
	users   *UserRepository
	invites *InviteRepository
}

// Open connects to dsn with the dialect's driver and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s open: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// SQLite allows one writer; a single connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", dialect.Name, err)
	}
	return New(db, dialect), nil
}

// New wraps an existing pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		users:   NewUserRepository(db, dialect),
		invites: NewInviteRepository(db, dialect),
	}
}

func (s *Store) Users() *UserRepository     { return s.users }
func (s *Store) Invites() *InviteRepository { return s.invites }

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, s.dialect.Migrations)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	goose.SetBaseFS(sub)
	if err := goose.SetDialect(s.dialect.Goose); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	goose.SetLogger(gooseLogger{log: logger.Component("migrate")})
	if err := gooseUp(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	log zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info().Msgf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatal().Msgf(strings.TrimSpace(format), v...)
}
