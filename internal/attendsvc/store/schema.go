package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the attendance tables when they do not exist
// yet. Called once at service startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS employee_map (
			employee      TEXT PRIMARY KEY,
			employee_name TEXT NOT NULL DEFAULT '',
			device_no     TEXT NOT NULL UNIQUE,
			status        TEXT NOT NULL DEFAULT 'Active',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_days (
			id          BIGSERIAL PRIMARY KEY,
			employee_no TEXT NOT NULL,
			event_date  DATE NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (employee_no, event_date)
		)`,
		`CREATE TABLE IF NOT EXISTS punches (
			id         BIGSERIAL PRIMARY KEY,
			day_id     BIGINT NOT NULL REFERENCES attendance_days(id) ON DELETE CASCADE,
			punch_time TEXT NOT NULL,
			punch_type TEXT NOT NULL,
			position   INT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_punches_day ON punches(day_id)`,
		`CREATE TABLE IF NOT EXISTS manual_punch_requests (
			id         BIGSERIAL PRIMARY KEY,
			employee   TEXT NOT NULL,
			punch_date DATE NOT NULL,
			punch_time TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_manual_punch_emp_date ON manual_punch_requests(employee, punch_date)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
