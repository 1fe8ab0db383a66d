package service

import (
	"context"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
)

// Store contracts consumed by the service layer. The pg/mongo
// implementations live in the store package; tests substitute
// in-memory fakes.

type AttendanceLedger interface {
	GetDay(ctx context.Context, employeeNo string, date time.Time) (*models.AttendanceDay, error)
	GetOrCreateDay(ctx context.Context, employeeNo string, date time.Time) (*models.AttendanceDay, error)
	IngestPunch(ctx context.Context, employeeNo string, date time.Time, punch models.Punch) (bool, error)
	ReplacePunches(ctx context.Context, dayID int64, punches []models.Punch) error
	GetByDate(ctx context.Context, date time.Time) ([]*models.AttendanceDay, error)
	GetRange(ctx context.Context, employeeNo string, from, to time.Time) ([]*models.AttendanceDay, error)
	DeleteManualPunch(ctx context.Context, employeeNo string, date time.Time, t models.Clock) error
}

type ManualPunches interface {
	Insert(ctx context.Context, req models.ManualPunchRequest) (int64, error)
	InsertPair(ctx context.Context, in, out models.ManualPunchRequest) error
	CountForEmployeeDate(ctx context.Context, employee string, date time.Time) (int, error)
	ListAll(ctx context.Context) ([]models.ManualPunchRequest, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.ManualPunchRequest, error)
	GetByID(ctx context.Context, id int64) (*models.ManualPunchRequest, error)
	Delete(ctx context.Context, id int64) error
}

type Employees interface {
	GetByEmployee(ctx context.Context, employee string) (*models.Employee, error)
	GetByDeviceNo(ctx context.Context, deviceNo string) (*models.Employee, error)
	ListActive(ctx context.Context) ([]models.Employee, error)
}

type SyncAudit interface {
	RecordRun(ctx context.Context, run models.SyncRun) error
}
