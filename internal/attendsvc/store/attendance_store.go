package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AttendanceStore struct {
	db *pgxpool.Pool
}

func NewAttendanceStore(db *pgxpool.Pool) *AttendanceStore {
	return &AttendanceStore{db: db}
}

// GetDay loads one attendance day with its punches. Returns nil, nil
// when no ledger exists for the key.
func (s *AttendanceStore) GetDay(ctx context.Context, employeeNo string, date time.Time) (*models.AttendanceDay, error) {
	day := &models.AttendanceDay{}
	err := s.db.QueryRow(ctx, `
        SELECT id, employee_no, event_date, created_at, updated_at
        FROM attendance_days
        WHERE employee_no = $1 AND event_date = $2
    `, employeeNo, date).Scan(&day.ID, &day.EmployeeNo, &day.EventDate, &day.CreatedAt, &day.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance day: %w", err)
	}

	if day.Punches, err = s.loadPunches(ctx, day.ID); err != nil {
		return nil, err
	}

	return day, nil
}

// GetOrCreateDay returns the attendance day for the key, creating an
// empty ledger on first use. Safe under concurrent callers.
func (s *AttendanceStore) GetOrCreateDay(ctx context.Context, employeeNo string, date time.Time) (*models.AttendanceDay, error) {
	_, err := s.db.Exec(ctx, `
        INSERT INTO attendance_days (employee_no, event_date)
        VALUES ($1, $2)
        ON CONFLICT (employee_no, event_date) DO NOTHING
    `, employeeNo, date)
	if err != nil {
		return nil, fmt.Errorf("failed to create attendance day: %w", err)
	}

	return s.GetDay(ctx, employeeNo, date)
}

// IngestPunch records one device punch inside a single transaction:
// lock or create the day, check for a punch at the exact same time of
// day, insert when absent. Returns false when the punch was a
// duplicate and nothing was written.
func (s *AttendanceStore) IngestPunch(ctx context.Context, employeeNo string, date time.Time, punch models.Punch) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var dayID int64
	err = tx.QueryRow(ctx, `
        INSERT INTO attendance_days (employee_no, event_date)
        VALUES ($1, $2)
        ON CONFLICT (employee_no, event_date) DO UPDATE SET updated_at = now()
        RETURNING id
    `, employeeNo, date).Scan(&dayID)
	if err != nil {
		return false, fmt.Errorf("failed to get or create attendance day: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM punches WHERE day_id = $1 AND punch_time = $2)
    `, dayID, punch.Time.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate punch: %w", err)
	}

	if exists {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO punches (day_id, punch_time, punch_type, position)
        VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), -1) + 1 FROM punches WHERE day_id = $1))
    `, dayID, punch.Time.String(), string(punch.Type))
	if err != nil {
		return false, fmt.Errorf("failed to insert punch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	return true, nil
}

// ReplacePunches rewrites the day's punch list wholesale, in the given
// order, inside one transaction. The correction and normalization
// paths use this so parity-based pairing stays coherent after inserts.
func (s *AttendanceStore) ReplacePunches(ctx context.Context, dayID int64, punches []models.Punch) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM punches WHERE day_id = $1`, dayID); err != nil {
		return fmt.Errorf("failed to clear punches: %w", err)
	}

	for i, p := range punches {
		_, err := tx.Exec(ctx, `
            INSERT INTO punches (day_id, punch_time, punch_type, position)
            VALUES ($1, $2, $3, $4)
        `, dayID, p.Time.String(), string(p.Type), i)
		if err != nil {
			return fmt.Errorf("failed to insert punch: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE attendance_days SET updated_at = now() WHERE id = $1`, dayID); err != nil {
		return fmt.Errorf("failed to touch attendance day: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByDate loads every attendance day recorded for one calendar date.
func (s *AttendanceStore) GetByDate(ctx context.Context, date time.Time) ([]*models.AttendanceDay, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, employee_no, event_date, created_at, updated_at
        FROM attendance_days
        WHERE event_date = $1
        ORDER BY employee_no
    `, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance days: %w", err)
	}
	defer rows.Close()

	return s.collectDays(ctx, rows)
}

// GetRange loads one employee's attendance days over a date range,
// inclusive on both ends.
func (s *AttendanceStore) GetRange(ctx context.Context, employeeNo string, from, to time.Time) ([]*models.AttendanceDay, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, employee_no, event_date, created_at, updated_at
        FROM attendance_days
        WHERE employee_no = $1 AND event_date BETWEEN $2 AND $3
        ORDER BY event_date
    `, employeeNo, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance days: %w", err)
	}
	defer rows.Close()

	return s.collectDays(ctx, rows)
}

// DeleteManualPunch removes a single Manual punch at the exact time of
// day. Administrative path only; triggers no reconciliation.
func (s *AttendanceStore) DeleteManualPunch(ctx context.Context, employeeNo string, date time.Time, t models.Clock) error {
	_, err := s.db.Exec(ctx, `
        DELETE FROM punches
        WHERE punch_type = 'Manual' AND punch_time = $1
          AND day_id = (SELECT id FROM attendance_days WHERE employee_no = $2 AND event_date = $3)
    `, t.String(), employeeNo, date)
	if err != nil {
		return fmt.Errorf("failed to delete manual punch: %w", err)
	}
	return nil
}

func (s *AttendanceStore) collectDays(ctx context.Context, rows pgx.Rows) ([]*models.AttendanceDay, error) {
	var days []*models.AttendanceDay
	for rows.Next() {
		day := &models.AttendanceDay{}
		if err := rows.Scan(&day.ID, &day.EmployeeNo, &day.EventDate, &day.CreatedAt, &day.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attendance days: %w", err)
	}

	for _, day := range days {
		punches, err := s.loadPunches(ctx, day.ID)
		if err != nil {
			return nil, err
		}
		day.Punches = punches
	}

	return days, nil
}

func (s *AttendanceStore) loadPunches(ctx context.Context, dayID int64) ([]models.Punch, error) {
	rows, err := s.db.Query(ctx, `
        SELECT punch_time, punch_type
        FROM punches
        WHERE day_id = $1
        ORDER BY position
    `, dayID)
	if err != nil {
		return nil, fmt.Errorf("failed to load punches: %w", err)
	}
	defer rows.Close()

	var punches []models.Punch
	for rows.Next() {
		var raw, ptype string
		if err := rows.Scan(&raw, &ptype); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		clock, err := models.ParseClock(raw)
		if err != nil {
			// a mis-parsed time would corrupt the minute arithmetic
			return nil, fmt.Errorf("stored punch for day %d: %w", dayID, err)
		}
		punches = append(punches, models.Punch{Time: clock, Type: models.PunchType(ptype)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read punches: %w", err)
	}

	// stored position order, not guaranteed chronological; consumers
	// sort by time before pairing
	return punches, nil
}
