package service

import (
	"context"
	"errors"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/device"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
	"github.com/ndvlabs/attendance-services/internal/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxWindowRecords is the device-side match ceiling. Windows above
	// it are refused before any paginated fetch is issued.
	MaxWindowRecords = 1500

	syncBatchSize = 30

	eventTimeLayout = "2006-01-02T15:04:05"
)

// ErrTooManyRecords is a rejected precondition, not a fetch failure:
// the caller must narrow the window and retry.
var ErrTooManyRecords = errors.New("too many records to process, please reduce the date range and try again")

// ProgressFunc receives ingestion progress for live dashboards.
type ProgressFunc func(runID string, percent int, message string)

type SyncSummary struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
}

// SyncService pulls raw punch events from the device and merges them
// into the attendance ledger. Safe to re-run over the same or an
// overlapping window: re-ingesting identical events only increments
// the skip count.
type SyncService struct {
	fetcher device.Fetcher
	ledger  AttendanceLedger
	audit   SyncAudit // nil disables the audit trail

	// Progress, when set, is called per page with percent complete.
	Progress ProgressFunc
}

func NewSyncService(fetcher device.Fetcher, ledger AttendanceLedger, audit SyncAudit) *SyncService {
	return &SyncService{
		fetcher: fetcher,
		ledger:  ledger,
		audit:   audit,
	}
}

// SyncWindow ingests every event in the window. A fetch failure or the
// record ceiling aborts the attempt; a per-record persistence failure
// is logged, counted as skipped and does not abort the batch.
func (s *SyncService) SyncWindow(ctx context.Context, window device.SyncWindow) (*SyncSummary, error) {
	runID := uuid.New().String()
	startedAt := time.Now()
	summary := &SyncSummary{RunID: runID}

	s.report(runID, 0, "Starting attendance sync...")

	// count-only probe
	probe, err := s.fetcher.FetchPage(ctx, window, 0, 1)
	if err != nil {
		metrics.SyncRuns.WithLabelValues(models.StatusError).Inc()
		s.recordRun(ctx, runID, window, summary, startedAt, models.StatusError, err.Error())
		return nil, err
	}

	summary.Total = probe.TotalMatches
	if summary.Total == 0 {
		metrics.SyncRuns.WithLabelValues(models.StatusSkipped).Inc()
		s.recordRun(ctx, runID, window, summary, startedAt, models.StatusSkipped, "no attendance records found")
		return summary, nil
	}

	if summary.Total > MaxWindowRecords {
		metrics.SyncRuns.WithLabelValues(models.StatusError).Inc()
		s.recordRun(ctx, runID, window, summary, startedAt, models.StatusError, ErrTooManyRecords.Error())
		return nil, ErrTooManyRecords
	}

	position := 0
	for {
		page, err := s.fetcher.FetchPage(ctx, window, position, syncBatchSize)
		if err != nil {
			metrics.SyncRuns.WithLabelValues(models.StatusError).Inc()
			s.recordRun(ctx, runID, window, summary, startedAt, models.StatusError, err.Error())
			return nil, err
		}

		if len(page.Events) == 0 {
			break
		}

		for _, ev := range page.Events {
			if ev.EmployeeNo == "" || ev.Timestamp == "" {
				continue // partial record, not an error
			}

			raw := ev.Timestamp
			if len(raw) > 19 {
				raw = raw[:19] // strip the device offset
			}
			ts, err := time.Parse(eventTimeLayout, raw)
			if err != nil {
				log.Warnf("sync %s: malformed event timestamp %q for employee %s", runID, ev.Timestamp, ev.EmployeeNo)
				continue
			}

			date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
			punch := models.Punch{Time: models.ClockFromTime(ts), Type: models.PunchAuto}

			created, err := s.ledger.IngestPunch(ctx, ev.EmployeeNo, date, punch)
			if err != nil {
				log.Errorf("sync %s: insert failed for employee %s at %s: %v", runID, ev.EmployeeNo, punch.Time, err)
				summary.Skipped++
				metrics.PunchesSkipped.Inc()
				continue
			}

			if created {
				summary.Synced++
				metrics.PunchesSynced.Inc()
			} else {
				summary.Skipped++
				metrics.PunchesSkipped.Inc()
			}
		}

		position += len(page.Events)
		s.report(runID, position*100/summary.Total, "Syncing attendance events...")

		if len(page.Events) < syncBatchSize || position >= summary.Total {
			break
		}
	}

	metrics.SyncRuns.WithLabelValues(models.StatusSuccess).Inc()
	s.recordRun(ctx, runID, window, summary, startedAt, models.StatusSuccess, "")
	log.Infof("sync %s: %d records synced, %d duplicates skipped", runID, summary.Synced, summary.Skipped)

	return summary, nil
}

func (s *SyncService) report(runID string, percent int, message string) {
	if s.Progress != nil {
		s.Progress(runID, percent, message)
	}
}

func (s *SyncService) recordRun(ctx context.Context, runID string, window device.SyncWindow, summary *SyncSummary, startedAt time.Time, status, message string) {
	if s.audit == nil {
		return
	}

	run := models.SyncRun{
		RunID:        runID,
		WindowStart:  window.Start,
		WindowEnd:    window.End,
		TotalMatches: summary.Total,
		Synced:       summary.Synced,
		Skipped:      summary.Skipped,
		Status:       status,
		Message:      message,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}

	if err := s.audit.RecordRun(ctx, run); err != nil {
		log.Errorf("sync %s: failed to record audit run: %v", runID, err)
	}
}
