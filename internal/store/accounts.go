package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/congrego/rollcall/internal/record"
)

// InsertAccount persists a login identity.
// Fails if the email is already registered (UNIQUE constraint).
func (s *Store) InsertAccount(ctx context.Context, a record.Account) error {
	var expires sql.NullInt64
	if a.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: millis(*a.ExpiresAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password, role, personal_code, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.Email,
		a.Password,
		string(a.Role),
		a.PersonalCode,
		expires,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// AccountByEmail returns the account registered under the given email.
// Returns (nil, nil) when no account matches.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*record.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password, role, personal_code, expires_at
		FROM accounts
		WHERE email = ?
	`, email)
	return scanAccountRow(row)
}

// AccountByCode returns the account linked to a member's personal code.
// Returns (nil, nil) when the member never self-registered.
func (s *Store) AccountByCode(ctx context.Context, code string) (*record.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password, role, personal_code, expires_at
		FROM accounts
		WHERE personal_code = ?
	`, code)
	return scanAccountRow(row)
}

// AccountByID returns an account by primary key.
// Returns (nil, nil) when no account matches.
func (s *Store) AccountByID(ctx context.Context, id string) (*record.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password, role, personal_code, expires_at
		FROM accounts
		WHERE id = ?
	`, id)
	return scanAccountRow(row)
}

// SetRole updates an account's role and grant deadline together.
//
// Writing both columns in one UPDATE keeps the invariant that
// expires_at is non-NULL exactly while role = 'tempUsher': pass a
// deadline when elevating, nil when downgrading.
func (s *Store) SetRole(ctx context.Context, accountID string, role record.Role, expiresAt *time.Time) error {
	var expires sql.NullInt64
	if expiresAt != nil {
		expires = sql.NullInt64{Int64: millis(*expiresAt), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET role = ?, expires_at = ?
		WHERE id = ?
	`,
		string(role),
		expires,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set role: no account with id %s", accountID)
	}
	return nil
}

// scanAccountRow scans a single account row, mapping no-rows to (nil, nil).
func scanAccountRow(row *sql.Row) (*record.Account, error) {
	var (
		a       record.Account
		role    string
		expires sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.Email, &a.Password, &role, &a.PersonalCode, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.Role = record.Role(role)
	if expires.Valid {
		t := fromMillis(expires.Int64)
		a.ExpiresAt = &t
	}
	return &a, nil
}
