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

type ManualPunchStore struct {
	db *pgxpool.Pool
}

func NewManualPunchStore(db *pgxpool.Pool) *ManualPunchStore {
	return &ManualPunchStore{db: db}
}

func (s *ManualPunchStore) Insert(ctx context.Context, req models.ManualPunchRequest) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
        INSERT INTO manual_punch_requests (employee, punch_date, punch_time)
        VALUES ($1, $2, $3)
        RETURNING id
    `, req.Employee, req.PunchDate, req.PunchTime.String()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert manual punch request: %w", err)
	}
	return id, nil
}

// InsertPair writes both requests of a correction in one transaction.
// The idempotence guard treats any persisted request as proof the day
// was corrected, so a half-persisted pair must never be observable.
func (s *ManualPunchStore) InsertPair(ctx context.Context, in, out models.ManualPunchRequest) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, req := range []models.ManualPunchRequest{in, out} {
		_, err := tx.Exec(ctx, `
            INSERT INTO manual_punch_requests (employee, punch_date, punch_time)
            VALUES ($1, $2, $3)
        `, req.Employee, req.PunchDate, req.PunchTime.String())
		if err != nil {
			return fmt.Errorf("failed to insert manual punch request: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// CountForEmployeeDate backs the correction engine's idempotence
// guard: any existing request for the key means the day was already
// corrected.
func (s *ManualPunchStore) CountForEmployeeDate(ctx context.Context, employee string, date time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM manual_punch_requests
        WHERE employee = $1 AND punch_date = $2
    `, employee, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count manual punch requests: %w", err)
	}
	return count, nil
}

func (s *ManualPunchStore) ListAll(ctx context.Context) ([]models.ManualPunchRequest, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, employee, punch_date, punch_time, created_at
        FROM manual_punch_requests
        ORDER BY punch_date, employee, punch_time
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual punch requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

func (s *ManualPunchStore) ListRange(ctx context.Context, from, to time.Time) ([]models.ManualPunchRequest, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, employee, punch_date, punch_time, created_at
        FROM manual_punch_requests
        WHERE punch_date BETWEEN $1 AND $2
        ORDER BY punch_date, employee, punch_time
    `, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual punch requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

func (s *ManualPunchStore) GetByID(ctx context.Context, id int64) (*models.ManualPunchRequest, error) {
	req := models.ManualPunchRequest{}
	var raw string
	err := s.db.QueryRow(ctx, `
        SELECT id, employee, punch_date, punch_time, created_at
        FROM manual_punch_requests
        WHERE id = $1
    `, id).Scan(&req.ID, &req.Employee, &req.PunchDate, &raw, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get manual punch request: %w", err)
	}

	if req.PunchTime, err = models.ParseClock(raw); err != nil {
		return nil, fmt.Errorf("stored manual punch %d: %w", id, err)
	}

	return &req, nil
}

func (s *ManualPunchStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM manual_punch_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete manual punch request: %w", err)
	}
	return nil
}

func collectRequests(rows pgx.Rows) ([]models.ManualPunchRequest, error) {
	var reqs []models.ManualPunchRequest
	for rows.Next() {
		req := models.ManualPunchRequest{}
		var raw string
		if err := rows.Scan(&req.ID, &req.Employee, &req.PunchDate, &raw, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan manual punch request: %w", err)
		}
		clock, err := models.ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("stored manual punch %d: %w", req.ID, err)
		}
		req.PunchTime = clock
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manual punch requests: %w", err)
	}
	return reqs, nil
}
