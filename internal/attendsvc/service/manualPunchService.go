package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/pairing"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/store"
	"github.com/ndvlabs/attendance-services/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// ManualPunchService owns the durable manual punch requests and the
// normalization pass that folds them into attendance ledgers.
type ManualPunchService struct {
	employees Employees
	ledger    AttendanceLedger
	manual    ManualPunches
}

func NewManualPunchService(employees Employees, ledger AttendanceLedger, manual ManualPunches) *ManualPunchService {
	return &ManualPunchService{
		employees: employees,
		ledger:    ledger,
		manual:    manual,
	}
}

// FoldAll reflects every durable manual punch request into its
// attendance ledger. Re-runnable: a request already present in the
// ledger at the exact time of day is skipped. A failure on one
// employee is logged and does not abort the others.
func (s *ManualPunchService) FoldAll(ctx context.Context) models.OpResult {
	reqs, err := s.manual.ListAll(ctx)
	if err != nil {
		return models.Errored(fmt.Sprintf("error updating manual punches: %v", err))
	}

	for _, req := range reqs {
		if err := s.fold(ctx, req); err != nil {
			log.Errorf("fold manual punch for %s on %s: %v", req.Employee, req.PunchDate.Format("2006-01-02"), err)
			continue
		}
	}

	return models.Success("manual punches updated successfully for all employees")
}

func (s *ManualPunchService) fold(ctx context.Context, req models.ManualPunchRequest) error {
	emp, err := s.employees.GetByEmployee(ctx, req.Employee)
	if err != nil {
		if errors.Is(err, store.ErrMappingNotFound) {
			// no device identity to attach the punch to yet
			log.Warnf("no attendance device id for employee %s, manual punch left pending", req.Employee)
			return nil
		}
		return err
	}

	day, err := s.ledger.GetOrCreateDay(ctx, emp.DeviceNo, req.PunchDate)
	if err != nil {
		return err
	}

	for _, p := range day.Punches {
		if p.Time == req.PunchTime {
			return nil // already folded
		}
	}

	punches := append(day.Punches, models.Punch{Time: req.PunchTime, Type: models.PunchManual})

	// wholesale resort-and-replace so position parity stays coherent
	if err := s.ledger.ReplacePunches(ctx, day.ID, pairing.Sorted(punches)); err != nil {
		return err
	}

	metrics.ManualPunchesFolded.Inc()
	return nil
}

// Add records a durable manual punch request and folds it into the
// ledger. The request is persisted before the ledger is touched.
func (s *ManualPunchService) Add(ctx context.Context, employee string, date time.Time, t models.Clock) models.OpResult {
	emp, err := s.employees.GetByEmployee(ctx, employee)
	if err != nil {
		if errors.Is(err, store.ErrMappingNotFound) {
			return models.Errored(fmt.Sprintf("attendance device id not found for %s", employee))
		}
		return models.Errored(fmt.Sprintf("error adding manual punch: %v", err))
	}

	day, err := s.ledger.GetOrCreateDay(ctx, emp.DeviceNo, date)
	if err != nil {
		return models.Errored(fmt.Sprintf("error adding manual punch: %v", err))
	}

	for _, p := range day.Punches {
		if p.Time == t {
			return models.Errored(fmt.Sprintf("manual punch for %s on %s at %s already exists",
				emp.EmployeeName, date.Format("2006-01-02"), t))
		}
	}

	req := models.ManualPunchRequest{Employee: employee, PunchDate: date, PunchTime: t}
	if _, err := s.manual.Insert(ctx, req); err != nil {
		return models.Errored(fmt.Sprintf("error adding manual punch: %v", err))
	}

	if err := s.fold(ctx, req); err != nil {
		return models.Errored(fmt.Sprintf("error adding manual punch: %v", err))
	}

	return models.Success(fmt.Sprintf("manual punch for %s on %s at %s added successfully",
		emp.EmployeeName, date.Format("2006-01-02"), t))
}

// Remove deletes a manual punch request and its ledger punch. No
// reconciliation runs as a side effect; removing the request is what
// re-arms the correction engine for that employee-day.
func (s *ManualPunchService) Remove(ctx context.Context, id int64) models.OpResult {
	req, err := s.manual.GetByID(ctx, id)
	if err != nil {
		return models.Errored(fmt.Sprintf("error deleting manual punch: %v", err))
	}
	if req == nil {
		return models.Errored(fmt.Sprintf("manual punch request %d not found", id))
	}

	emp, err := s.employees.GetByEmployee(ctx, req.Employee)
	if err != nil && !errors.Is(err, store.ErrMappingNotFound) {
		return models.Errored(fmt.Sprintf("error deleting manual punch: %v", err))
	}

	if emp != nil {
		if err := s.ledger.DeleteManualPunch(ctx, emp.DeviceNo, req.PunchDate, req.PunchTime); err != nil {
			return models.Errored(fmt.Sprintf("error deleting manual punch: %v", err))
		}
	}

	if err := s.manual.Delete(ctx, id); err != nil {
		return models.Errored(fmt.Sprintf("error deleting manual punch: %v", err))
	}

	return models.Success(fmt.Sprintf("manual punch for employee %s on %s at %s deleted successfully",
		req.Employee, req.PunchDate.Format("2006-01-02"), req.PunchTime))
}
