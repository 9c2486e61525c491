package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/congrego/rollcall/internal/record"
)

// InsertAssignmentIfNoneLive atomically inserts a privilege assignment
// unless the member already holds a live one (status 'active' and
// unexpired at now).
//
// The check and the insert run in a single transaction, so two writers
// racing to grant the same member cannot both succeed. Returns
// inserted=false when a live assignment blocked the insert.
//
// An expired-but-unrevoked assignment does not block: it is inert,
// though its status stays 'active' for audit.
func (s *Store) InsertAssignmentIfNoneLive(ctx context.Context, a record.PrivilegeAssignment, now time.Time) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("insert assignment: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var live int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM privilege_assignments
		WHERE member_id = ? AND status = ? AND expires_at > ?
	`, a.MemberID, string(record.AssignmentActive), millis(now)).Scan(&live)
	if err != nil {
		return false, fmt.Errorf("insert assignment: check live: %w", err)
	}

	if live > 0 {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("insert assignment: commit (blocked): %w", err)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO privilege_assignments
		(id, member_id, member_email, member_name, username, password, assigned_by, assigned_at, expires_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.MemberID,
		a.MemberEmail,
		a.MemberName,
		a.Credentials.Username,
		a.Credentials.Password,
		a.AssignedBy,
		millis(a.AssignedAt),
		millis(a.ExpiresAt),
		string(a.Status),
	)
	if err != nil {
		return false, fmt.Errorf("insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("insert assignment: commit: %w", err)
	}
	return true, nil
}

// AssignmentByID returns an assignment by primary key.
// Returns (nil, nil) when no assignment matches.
func (s *Store) AssignmentByID(ctx context.Context, id string) (*record.PrivilegeAssignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_id, member_email, member_name, username, password,
		       assigned_by, assigned_at, expires_at, status
		FROM privilege_assignments
		WHERE id = ?
	`, id)
	return scanAssignmentRow(row)
}

// LiveAssignmentByMember returns the member's live assignment, if any.
// Returns (nil, nil) when none is live at now.
func (s *Store) LiveAssignmentByMember(ctx context.Context, memberID string, now time.Time) (*record.PrivilegeAssignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_id, member_email, member_name, username, password,
		       assigned_by, assigned_at, expires_at, status
		FROM privilege_assignments
		WHERE member_id = ? AND status = ? AND expires_at > ?
		ORDER BY assigned_at DESC, id DESC
		LIMIT 1
	`, memberID, string(record.AssignmentActive), millis(now))
	return scanAssignmentRow(row)
}

// LiveAssignmentByEmail returns the live assignment targeting the given
// account email, if any. Returns (nil, nil) when none is live at now.
func (s *Store) LiveAssignmentByEmail(ctx context.Context, email string, now time.Time) (*record.PrivilegeAssignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_id, member_email, member_name, username, password,
		       assigned_by, assigned_at, expires_at, status
		FROM privilege_assignments
		WHERE member_email = ? AND status = ? AND expires_at > ?
		ORDER BY assigned_at DESC, id DESC
		LIMIT 1
	`, email, string(record.AssignmentActive), millis(now))
	return scanAssignmentRow(row)
}

// LatestAssignmentByMember returns the member's most recent
// assignment regardless of status or expiry. Returns (nil, nil) when
// the member never held one.
func (s *Store) LatestAssignmentByMember(ctx context.Context, memberID string) (*record.PrivilegeAssignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_id, member_email, member_name, username, password,
		       assigned_by, assigned_at, expires_at, status
		FROM privilege_assignments
		WHERE member_id = ?
		ORDER BY assigned_at DESC, id DESC
		LIMIT 1
	`, memberID)
	return scanAssignmentRow(row)
}

// ListLiveAssignments returns all assignments that are active and
// unexpired at now, for administrative visibility.
func (s *Store) ListLiveAssignments(ctx context.Context, now time.Time) ([]record.PrivilegeAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, member_email, member_name, username, password,
		       assigned_by, assigned_at, expires_at, status
		FROM privilege_assignments
		WHERE status = ? AND expires_at > ?
		ORDER BY assigned_at ASC, id ASC
	`, string(record.AssignmentActive), millis(now))
	if err != nil {
		return nil, fmt.Errorf("query live assignments: %w", err)
	}
	defer rows.Close()

	var assignments []record.PrivilegeAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	if assignments == nil {
		assignments = []record.PrivilegeAssignment{}
	}
	return assignments, nil
}

// RevokeAssignment sets an assignment's status to revoked.
// Idempotent: returns false without error when the assignment is
// missing or already revoked.
func (s *Store) RevokeAssignment(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE privilege_assignments
		SET status = ?
		WHERE id = ? AND status = ?
	`, string(record.AssignmentRevoked), id, string(record.AssignmentActive))
	if err != nil {
		return false, fmt.Errorf("revoke assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke assignment: rows affected: %w", err)
	}
	return n > 0, nil
}

func scanAssignmentRow(row *sql.Row) (*record.PrivilegeAssignment, error) {
	var (
		a          record.PrivilegeAssignment
		status     string
		assignedAt int64
		expiresAt  int64
	)
	err := row.Scan(
		&a.ID, &a.MemberID, &a.MemberEmail, &a.MemberName,
		&a.Credentials.Username, &a.Credentials.Password,
		&a.AssignedBy, &assignedAt, &expiresAt, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	a.Status = record.AssignmentStatus(status)
	a.AssignedAt = fromMillis(assignedAt)
	a.ExpiresAt = fromMillis(expiresAt)
	return &a, nil
}

func scanAssignment(rows *sql.Rows) (record.PrivilegeAssignment, error) {
	var (
		a          record.PrivilegeAssignment
		status     string
		assignedAt int64
		expiresAt  int64
	)
	err := rows.Scan(
		&a.ID, &a.MemberID, &a.MemberEmail, &a.MemberName,
		&a.Credentials.Username, &a.Credentials.Password,
		&a.AssignedBy, &assignedAt, &expiresAt, &status,
	)
	if err != nil {
		return record.PrivilegeAssignment{}, fmt.Errorf("scan assignment: %w", err)
	}
	a.Status = record.AssignmentStatus(status)
	a.AssignedAt = fromMillis(assignedAt)
	a.ExpiresAt = fromMillis(expiresAt)
	return a, nil
}
