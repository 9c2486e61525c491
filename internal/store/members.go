package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/congrego/rollcall/internal/record"
)

// InsertMember persists a newly enrolled member.
// Fails if the personal code is already taken (UNIQUE constraint).
func (s *Store) InsertMember(ctx context.Context, m record.Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, area, guardian_name, birth_year, personal_code)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		m.Name,
		m.Area,
		m.GuardianName,
		m.BirthYear,
		m.PersonalCode,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// MemberByCode returns the member holding the given personal code.
// Returns (nil, nil) when no member matches.
func (s *Store) MemberByCode(ctx context.Context, code string) (*record.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, area, guardian_name, birth_year, personal_code
		FROM members
		WHERE personal_code = ?
	`, code)
	return scanMemberRow(row)
}

// MemberByID returns a member by primary key.
// Returns (nil, nil) when no member matches.
func (s *Store) MemberByID(ctx context.Context, id string) (*record.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, area, guardian_name, birth_year, personal_code
		FROM members
		WHERE id = ?
	`, id)
	return scanMemberRow(row)
}

// ListMembers returns all members ordered by name, then code for
// deterministic output when names collide.
func (s *Store) ListMembers(ctx context.Context) ([]record.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, area, guardian_name, birth_year, personal_code
		FROM members
		ORDER BY name ASC, personal_code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []record.Member
	for rows.Next() {
		var m record.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Area, &m.GuardianName, &m.BirthYear, &m.PersonalCode); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	if members == nil {
		members = []record.Member{}
	}
	return members, nil
}

// UpdateMember applies an administrative edit to an existing member.
func (s *Store) UpdateMember(ctx context.Context, m record.Member) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE members
		SET name = ?, area = ?, guardian_name = ?, birth_year = ?, personal_code = ?
		WHERE id = ?
	`,
		m.Name,
		m.Area,
		m.GuardianName,
		m.BirthYear,
		m.PersonalCode,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update member: no member with id %s", m.ID)
	}
	return nil
}

// DeleteMember removes a member and, in the same transaction, the
// account registered with the member's personal code. Explicit admin
// action only; attendance records are left in place for history.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete member: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var code string
	err = tx.QueryRowContext(ctx, `SELECT personal_code FROM members WHERE id = ?`, id).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete member: no member with id %s", id)
	}
	if err != nil {
		return fmt.Errorf("delete member: lookup code: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if code != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE personal_code = ?`, code); err != nil {
			return fmt.Errorf("delete member: cascade account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete member: commit: %w", err)
	}
	return nil
}

// scanMemberRow scans a single member row, mapping no-rows to (nil, nil).
func scanMemberRow(row *sql.Row) (*record.Member, error) {
	var m record.Member
	err := row.Scan(&m.ID, &m.Name, &m.Area, &m.GuardianName, &m.BirthYear, &m.PersonalCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan member: %w", err)
	}
	return &m, nil
}
