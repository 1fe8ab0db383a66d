package comm

import (
	"encoding/json"
	"time"
)

// Message is the envelope for everything crossing NATS between the
// scheduler, the attendance service and the ws clients.
type Message struct {
	Type string          `json:"type"` // e.g. "sync-window", "run-correction"
	Data json.RawMessage `json:"data"`
}

// SyncWindowCmd asks the attendance service to ingest one time window.
type SyncWindowCmd struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CorrectionCmd asks for one employee-day correction. Which date to
// target is always the caller's decision.
type CorrectionCmd struct {
	Employee string `json:"employee"`
	Date     string `json:"date"` // YYYY-MM-DD
}

type SyncProgress struct {
	RunID   string `json:"run_id"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type SyncSummary struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CorrectionOutcome struct {
	Employee string `json:"employee"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}
