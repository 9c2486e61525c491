package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/congrego/rollcall/internal/record"
)

// InsertAttendance persists a committed check-in record.
// Records are immutable facts; there is no update path.
func (s *Store) InsertAttendance(ctx context.Context, r record.AttendanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, account_id, method, service, location, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.AccountID,
		string(r.Method),
		r.Service,
		r.Location,
		millis(r.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// DeleteAttendance removes exactly one record by ID. Only the check-in
// pipeline's undo calls this. Returns false when no record matched.
func (s *Store) DeleteAttendance(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete attendance: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListAttendance returns the most recent records, newest first.
// ID is the tiebreaker so equal timestamps order deterministically.
func (s *Store) ListAttendance(ctx context.Context, limit int) ([]record.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, method, service, location, ts
		FROM attendance_records
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	return collectAttendance(rows)
}

// ListAttendanceByAccount returns all records for one account, newest first.
func (s *Store) ListAttendanceByAccount(ctx context.Context, accountID string) ([]record.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, method, service, location, ts
		FROM attendance_records
		WHERE account_id = ?
		ORDER BY ts DESC, id DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query attendance by account: %w", err)
	}
	defer rows.Close()

	return collectAttendance(rows)
}

// CountAttendance returns the total number of records. Used by tests
// and administrative summaries.
func (s *Store) CountAttendance(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return n, nil
}

func collectAttendance(rows *sql.Rows) ([]record.AttendanceRecord, error) {
	var records []record.AttendanceRecord
	for rows.Next() {
		var (
			r      record.AttendanceRecord
			method string
			ts     int64
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &method, &r.Service, &r.Location, &ts); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		r.Method = record.Method(method)
		r.Timestamp = fromMillis(ts)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}

	if records == nil {
		records = []record.AttendanceRecord{}
	}
	return records, nil
}
