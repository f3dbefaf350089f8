package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safedev/accessgate/internal/core/domain"
)

const userColumns = `uid, username, password, hwid, discord_id, invite_code, register_date, last_login, status`

// UserRepository implements ports.UserRepository on database/sql.
type UserRepository struct {
	db      DBTX
	dialect Dialect
}

func NewUserRepository(db DBTX, dialect Dialect) *UserRepository {
	return &UserRepository{db: db, dialect: dialect}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	status := user.Status
	if status == "" {
		status = domain.StatusActive
	}
	q := r.dialect.Rebind(`INSERT INTO users (username, password, hwid, discord_id, invite_code, register_date, last_login, status)
VALUES (?, ?, NULL, ?, ?, ?, NULL, ?) RETURNING uid`)

	var uid int64
	err := r.db.QueryRowContext(ctx, q,
		user.Username, user.Password, user.ExternalID, user.InviteCode, r.dialect.Time(user.RegisterDate), string(status),
	).Scan(&uid)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	created.UID = uid
	created.Status = status
	created.HWID = nil
	created.LastLogin = nil
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, uid int64) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) SetStatus(ctx context.Context, uid int64, status domain.UserStatus) error {
	return r.updateExisting(ctx, "set status", `UPDATE users SET status = ? WHERE uid = ?`, string(status), uid)
}

func (r *UserRepository) ResetHWID(ctx context.Context, uid int64) error {
	return r.updateExisting(ctx, "reset hwid", `UPDATE users SET hwid = NULL WHERE uid = ?`, uid)
}

func (r *UserRepository) BindHWID(ctx context.Context, uid int64, hwid string, at time.Time) (bool, error) {
	return r.conditional(ctx, "bind hwid",
		`UPDATE users SET hwid = ?, last_login = ? WHERE uid = ? AND hwid IS NULL AND status = ?`,
		hwid, r.dialect.Time(at), uid, string(domain.StatusActive))
}

func (r *UserRepository) TouchLogin(ctx context.Context, uid int64, hwid string, at time.Time) (bool, error) {
	return r.conditional(ctx, "touch login",
		`UPDATE users SET last_login = ? WHERE uid = ? AND hwid = ? AND status = ?`,
		r.dialect.Time(at), uid, hwid, string(domain.StatusActive))
}

// updateExisting runs an unconditional update and maps zero affected rows to ErrUserNotFound.
// Writing the current value still counts as a match on both backends.
func (r *UserRepository) updateExisting(ctx context.Context, op, query string, args ...any) error {
	ok, err := r.conditional(ctx, op, query, args...)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) conditional(ctx context.Context, op, query string, args ...any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u            domain.User
		hwid         sql.NullString
		registerDate nullTime
		lastLogin    nullTime
		status       sql.NullString
	)
	if err := row.Scan(&u.UID, &u.Username, &u.Password, &hwid, &u.ExternalID, &u.InviteCode,
		&registerDate, &lastLogin, &status); err != nil {
		return nil, err
	}
	u.Status = domain.StatusActive
	if status.Valid && status.String != "" {
		u.Status = domain.UserStatus(status.String)
	}
	u.RegisterDate = registerDate.Time
	if hwid.Valid {
		h := hwid.String
		u.HWID = &h
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
