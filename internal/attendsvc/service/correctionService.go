package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/pairing"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/store"
	"github.com/ndvlabs/attendance-services/internal/metrics"

	log "github.com/sirupsen/logrus"
)

const (
	// TargetMinutes is the billable duration floor every corrected
	// employee-day must reach.
	TargetMinutes = 60

	// deficitAnchor is the canonical IN time of the padding block.
	deficitAnchor = models.Clock(8 * 3600) // 08:00:00
)

// CorrectionService decides and injects synthetic Manual punches so an
// employee-day's paired total reaches exactly TargetMinutes.
//
// Branches, first match wins: no-data, insufficient, already-corrected,
// exact, deficit, surplus. Deficit pads the day with a block anchored
// at 08:00:00; surplus carves a break out of the midpoint of the
// longest existing pair.
type CorrectionService struct {
	employees Employees
	ledger    AttendanceLedger
	manual    ManualPunches
	folder    *ManualPunchService

	locks sync.Map // "employee|date" -> *sync.Mutex
}

func NewCorrectionService(employees Employees, ledger AttendanceLedger, manual ManualPunches, folder *ManualPunchService) *CorrectionService {
	return &CorrectionService{
		employees: employees,
		ledger:    ledger,
		manual:    manual,
		folder:    folder,
	}
}

// Correct runs the correction state machine for one employee-day. The
// guard-check-then-insert sequence is serialized per key so concurrent
// invocations cannot double-correct.
func (s *CorrectionService) Correct(ctx context.Context, employee string, date time.Time) models.OpResult {
	unlock := s.lock(employee + "|" + date.Format("2006-01-02"))
	defer unlock()

	res := s.correct(ctx, employee, date)
	log.Infof("correction for %s on %s: %s (%s)", employee, date.Format("2006-01-02"), res.Status, res.Message)
	return res
}

func (s *CorrectionService) correct(ctx context.Context, employee string, date time.Time) models.OpResult {
	dateStr := date.Format("2006-01-02")

	emp, err := s.employees.GetByEmployee(ctx, employee)
	if err != nil {
		if errors.Is(err, store.ErrMappingNotFound) {
			metrics.Corrections.WithLabelValues("mapping", models.StatusError).Inc()
			return models.Errored(fmt.Sprintf("attendance device id not found for %s", employee))
		}
		metrics.Corrections.WithLabelValues("mapping", models.StatusError).Inc()
		return models.Errored(fmt.Sprintf("error updating manual punch: %v", err))
	}

	day, err := s.ledger.GetDay(ctx, emp.DeviceNo, date)
	if err != nil {
		// includes time-format validation failures from the ledger;
		// isolated to this employee-day
		metrics.Corrections.WithLabelValues("load", models.StatusError).Inc()
		return models.Errored(fmt.Sprintf("error updating manual punch: %v", err))
	}

	// no device data at all: only the normalize side-effect runs
	if day == nil || countAuto(day.Punches) == 0 {
		s.folder.FoldAll(ctx)
		metrics.Corrections.WithLabelValues("no_data", models.StatusSkipped).Inc()
		return models.Skipped(fmt.Sprintf("no auto punches for employee %s on %s", employee, dateStr))
	}

	punches := truncateSeconds(day.Punches)

	if len(punches) < 2 {
		metrics.Corrections.WithLabelValues("insufficient", models.StatusSkipped).Inc()
		return models.Skipped(fmt.Sprintf("not enough auto punches for employee %s on %s, need at least 2", employee, dateStr))
	}

	existing, err := s.manual.CountForEmployeeDate(ctx, employee, date)
	if err != nil {
		metrics.Corrections.WithLabelValues("guard", models.StatusError).Inc()
		return models.Errored(fmt.Sprintf("error updating manual punch: %v", err))
	}
	if existing > 0 {
		metrics.Corrections.WithLabelValues("already_corrected", models.StatusSkipped).Inc()
		return models.Skipped(fmt.Sprintf("manual punches already exist for employee %s on %s, skipping duplicate entry", employee, dateStr))
	}

	total, _ := pairing.Total(punches, pairing.ModeDropLast)

	switch {
	case total == TargetMinutes:
		s.folder.FoldAll(ctx)
		metrics.Corrections.WithLabelValues("exact", models.StatusSuccess).Inc()
		return models.Success("no manual punch needed, total working time is already 60 minutes")

	case total < TargetMinutes:
		// an existing punch at exactly 08:00:00 collides with the pad:
		// the fold dedup drops the pad's IN and the day stays below 60
		in := deficitAnchor
		out := in.AddMinutes(TargetMinutes - total)
		return s.apply(ctx, "deficit", employee, date, in, out)

	default:
		in, out, err := carveBreak(punches, total-TargetMinutes)
		if err != nil {
			metrics.Corrections.WithLabelValues("surplus", models.StatusError).Inc()
			return models.Errored(fmt.Sprintf("cannot adjust time for employee %s on %s: %v", employee, dateStr, err))
		}
		return s.apply(ctx, "surplus", employee, date, in, out)
	}
}

// apply persists the two Manual punch requests durably, then folds
// them into the ledger. The pair is written in one transaction: a
// single surviving request would trip the idempotence guard on every
// retry while the day stays short of the target.
func (s *CorrectionService) apply(ctx context.Context, branch, employee string, date time.Time, in, out models.Clock) models.OpResult {
	inReq := models.ManualPunchRequest{Employee: employee, PunchDate: date, PunchTime: in}
	outReq := models.ManualPunchRequest{Employee: employee, PunchDate: date, PunchTime: out}
	if err := s.manual.InsertPair(ctx, inReq, outReq); err != nil {
		metrics.Corrections.WithLabelValues(branch, models.StatusError).Inc()
		return models.Errored(fmt.Sprintf("error updating manual punch: %v", err))
	}

	s.folder.FoldAll(ctx)
	metrics.Corrections.WithLabelValues(branch, models.StatusSuccess).Inc()
	return models.Success(fmt.Sprintf("manual punches added for employee %s: %s and %s", employee, in, out))
}

// carveBreak sizes a break of excess minutes out of the midpoint of
// the longest IN/OUT pair. The break start lands on a whole minute at
// in + (dur-excess)/2, so the two residual sub-pairs always sum to
// dur-excess exactly under minute truncation.
func carveBreak(punches []models.Punch, excess int) (in, out models.Clock, err error) {
	pairs := pairing.Pairs(punches)

	longest := pairs[0]
	for _, p := range pairs[1:] {
		if p.Minutes() > longest.Minutes() {
			longest = p
		}
	}

	dur := longest.Minutes()
	// the carve punches must stay strictly inside the pair
	if dur-excess < 2 {
		return 0, 0, fmt.Errorf("excess of %d minutes cannot be carved from the longest pair (%d minutes)", excess, dur)
	}

	in = longest.In.TruncateMinute().AddMinutes((dur - excess) / 2)
	out = in.AddMinutes(excess)
	return in, out, nil
}

func countAuto(punches []models.Punch) int {
	n := 0
	for _, p := range punches {
		if p.Type == models.PunchAuto {
			n++
		}
	}
	return n
}

// truncateSeconds zeroes the seconds of every punch before the minute
// arithmetic, matching how totals are computed everywhere else.
func truncateSeconds(punches []models.Punch) []models.Punch {
	out := make([]models.Punch, len(punches))
	for i, p := range punches {
		out[i] = models.Punch{Time: p.Time.TruncateMinute(), Type: p.Type}
	}
	return out
}

func (s *CorrectionService) lock(key string) func() {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
