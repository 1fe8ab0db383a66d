package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMappingNotFound is returned when an employee has no device
// mapping (or a device number has no employee). Callers treat it as a
// typed precondition failure, never as an empty join.
var ErrMappingNotFound = errors.New("employee device mapping not found")

type EmployeeStore struct {
	db *pgxpool.Pool
}

func NewEmployeeStore(db *pgxpool.Pool) *EmployeeStore {
	return &EmployeeStore{db: db}
}

func (s *EmployeeStore) GetByEmployee(ctx context.Context, employee string) (*models.Employee, error) {
	return s.getOne(ctx, `
        SELECT employee, employee_name, device_no, status, created_at, updated_at
        FROM employee_map
        WHERE employee = $1
    `, employee)
}

func (s *EmployeeStore) GetByDeviceNo(ctx context.Context, deviceNo string) (*models.Employee, error) {
	return s.getOne(ctx, `
        SELECT employee, employee_name, device_no, status, created_at, updated_at
        FROM employee_map
        WHERE device_no = $1
    `, deviceNo)
}

func (s *EmployeeStore) ListActive(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.db.Query(ctx, `
        SELECT employee, employee_name, device_no, status, created_at, updated_at
        FROM employee_map
        WHERE status = 'Active'
        ORDER BY device_no
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		e := models.Employee{}
		if err := rows.Scan(&e.Employee, &e.EmployeeName, &e.DeviceNo, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read employees: %w", err)
	}

	return employees, nil
}

func (s *EmployeeStore) Upsert(ctx context.Context, e models.Employee) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO employee_map (employee, employee_name, device_no, status)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (employee) DO UPDATE
        SET employee_name = EXCLUDED.employee_name,
            device_no = EXCLUDED.device_no,
            status = EXCLUDED.status,
            updated_at = now()
    `, e.Employee, e.EmployeeName, e.DeviceNo, e.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert employee mapping: %w", err)
	}
	return nil
}

func (s *EmployeeStore) getOne(ctx context.Context, query, key string) (*models.Employee, error) {
	e := &models.Employee{}
	err := s.db.QueryRow(ctx, query, key).Scan(
		&e.Employee,
		&e.EmployeeName,
		&e.DeviceNo,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to get employee mapping: %w", err)
	}
	return e, nil
}
