package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/safedev/accessgate/internal/core/domain"
)

func newPostgresMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres), mock
}

func TestRebind(t *testing.T) {
	q := `UPDATE users SET hwid = ?, last_login = ? WHERE uid = ? AND hwid IS NULL`
	require.Equal(t, q, SQLite.Rebind(q))
	require.Equal(t, `UPDATE users SET hwid = $1, last_login = $2 WHERE uid = $3 AND hwid IS NULL`, Postgres.Rebind(q))
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, Postgres.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, Postgres.IsUniqueViolation(&pgconn.PgError{Code: "23502"}))
	require.False(t, Postgres.IsUniqueViolation(errors.New("boom")))
	require.False(t, SQLite.IsUniqueViolation(nil))
}

func TestPostgres_CreateUserDuplicate(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)+`.*VALUES \(\$1, \$2, NULL, \$3, \$4, \$5, NULL, \$6\) RETURNING uid`).
		WithArgs("alice", "pw", "42", "CODE", sqlmock.AnyArg(), "active").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := st.Users().Create(context.Background(), &domain.User{
		Username: "alice", Password: "pw", ExternalID: "42", InviteCode: "CODE", RegisterDate: time.Now(),
	})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUserReturnsUID(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnRows(sqlmock.NewRows([]string{"uid"}).AddRow(int64(7)))

	u, err := st.Users().Create(context.Background(), &domain.User{Username: "bob", RegisterDate: time.Now()})
	require.NoError(t, err)
	require.Equal(t, int64(7), u.UID)
	require.Equal(t, domain.StatusActive, u.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BindHWIDConditional(t *testing.T) {
	st, mock := newPostgresMock(t)
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	q := regexp.QuoteMeta(`UPDATE users SET hwid = $1, last_login = $2 WHERE uid = $3 AND hwid IS NULL AND status = $4`)
	mock.ExpectExec(q).WithArgs("H1", at, int64(3), "active").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("H2", at, int64(3), "active").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := st.Users().BindHWID(context.Background(), 3, "H1", at)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = st.Users().BindHWID(context.Background(), 3, "H2", at)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetStatusNotFound(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET status = $1 WHERE uid = $2`)).
		WithArgs("banned", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Users().SetStatus(context.Background(), 9, domain.StatusBanned)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByUsernameNoRows(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"uid"}))

	_, err := st.Users().FindByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MarkUsedAndDriverError(t *testing.T) {
	st, mock := newPostgresMock(t)
	q := regexp.QuoteMeta(`UPDATE invites SET used = TRUE WHERE code = $1 AND used = FALSE AND expiration_date >= $2`)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(q).WithArgs("ABCD1234", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("ABCD1234", now).WillReturnError(errors.New("connection reset"))

	ok, err := st.Invites().MarkUsed(context.Background(), "ABCD1234", now)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = st.Invites().MarkUsed(context.Background(), "ABCD1234", now)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mark invite used")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateInviteDuplicate(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO invites (code, expiration_date, used) VALUES ($1, $2, FALSE)`)).
		WithArgs("ABCD1234", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := st.Invites().Create(context.Background(), &domain.Invite{Code: "ABCD1234", ExpirationDate: time.Now()})
	require.ErrorIs(t, err, domain.ErrDuplicateInvite)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_UsesDialectDirectory(t *testing.T) {
	st, _ := newPostgresMock(t)

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })
	called := false
	gooseUp = func(ctx context.Context, _ *sql.DB, dir string) error {
		called = true
		require.Equal(t, ".", dir)
		return errors.New("boom")
	}

	err := st.Migrate(context.Background())
	require.Error(t, err)
	require.True(t, called)
	require.Contains(t, err.Error(), "migrations")
}
