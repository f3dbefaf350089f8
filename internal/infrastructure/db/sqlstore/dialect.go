package sqlstore

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// Dialect captures what differs between the supported SQL backends.
type Dialect struct {
	// Name is the database/sql driver name.
	Name string
	// Goose is the goose dialect used for migrations.
	Goose string
	// Migrations is the directory under migrations/ holding this dialect's files.
	Migrations string

	numberedParams bool
	textTimes      bool
	uniqueCheck    func(error) bool
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Goose:       "sqlite3",
		Migrations:  "migrations/sqlite",
		textTimes:   true,
		uniqueCheck: isSQLiteUniqueViolation,
	}
	Postgres = Dialect{
		Name:           "pgx",
		Goose:          "postgres",
		Migrations:     "migrations/postgres",
		numberedParams: true,
		uniqueCheck:    isPostgresUniqueViolation,
	}
)

// Rebind rewrites '?' placeholders into the dialect's parameter style.
func (d Dialect) Rebind(query string) string {
	if !d.numberedParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique or primary key violation.
func (d Dialect) IsUniqueViolation(err error) bool {
	return err != nil && d.uniqueCheck != nil && d.uniqueCheck(err)
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
