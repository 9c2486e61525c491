package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/congrego/rollcall/internal/record"
)

// SaveSession records the signed-in account for this profile.
// A single row is kept; signing in replaces any previous session.
func (s *Store) SaveSession(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET account_id = excluded.account_id
	`, accountID)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SessionAccount returns the account behind the persisted session.
// Returns (nil, nil) when nobody is signed in, or when the session
// points at a deleted account (the stale row is cleared).
func (s *Store) SessionAccount(ctx context.Context) (*record.Account, error) {
	var accountID string
	err := s.db.QueryRowContext(ctx, `SELECT account_id FROM sessions WHERE id = 1`).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	acct, err := s.AccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		// Account deleted out from under the session.
		if err := s.ClearSession(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return acct, nil
}

// ClearSession signs out. Idempotent.
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
