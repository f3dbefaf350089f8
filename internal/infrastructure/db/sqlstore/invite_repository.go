package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safedev/accessgate/internal/core/domain"
)

// InviteRepository implements ports.InviteRepository on database/sql.
type InviteRepository struct {
	db      DBTX
	dialect Dialect
}

func NewInviteRepository(db DBTX, dialect Dialect) *InviteRepository {
	return &InviteRepository{db: db, dialect: dialect}
}

func (r *InviteRepository) Create(ctx context.Context, invite *domain.Invite) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := r.dialect.Rebind(`INSERT INTO invites (code, expiration_date, used) VALUES (?, ?, FALSE)`)
	if _, err := r.db.ExecContext(ctx, q, invite.Code, r.dialect.Time(invite.ExpirationDate)); err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return domain.ErrDuplicateInvite
		}
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (r *InviteRepository) FindByCode(ctx context.Context, code string) (*domain.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := r.dialect.Rebind(`SELECT code, expiration_date, used FROM invites WHERE code = ?`)
	inv, err := scanInvite(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("find invite: %w", err)
	}
	return inv, nil
}

// MarkUsed is a compare-and-set on the used flag; only one caller can observe true.
// A NULL expiration never matches, so such invites count as expired.
func (r *InviteRepository) MarkUsed(ctx context.Context, code string, now time.Time) (bool, error) {
	return r.flip(ctx, "mark invite used",
		`UPDATE invites SET used = TRUE WHERE code = ? AND used = FALSE AND expiration_date >= ?`,
		code, r.dialect.Time(now))
}

func (r *InviteRepository) Release(ctx context.Context, code string) error {
	_, err := r.flip(ctx, "release invite", `UPDATE invites SET used = FALSE WHERE code = ? AND used = TRUE`, code)
	return err
}

func (r *InviteRepository) List(ctx context.Context) ([]*domain.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT code, expiration_date, used FROM invites ORDER BY expiration_date, code`)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	invites := make([]*domain.Invite, 0)
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}

func (r *InviteRepository) flip(ctx context.Context, op, query string, args ...any) (bool, error) {
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
	return n == 1, nil
}

// scanInvite leaves ExpirationDate zero for a NULL column, which reads as expired.
func scanInvite(row rowScanner) (*domain.Invite, error) {
	var (
		inv     domain.Invite
		expires nullTime
		used    sql.NullBool
	)
	if err := row.Scan(&inv.Code, &expires, &used); err != nil {
		return nil, err
	}
	inv.ExpirationDate = expires.Time
	inv.Used = used.Bool
	return &inv, nil
}
