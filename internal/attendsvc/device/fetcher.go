package device

import (
	"context"
	"time"
)

// SyncWindow bounds one sync attempt. It is passed explicitly into
// every fetch and ingestion call; there is no shared settings record.
type SyncWindow struct {
	Start time.Time
	End   time.Time
}

// Event is one raw door-access punch as reported by the device.
type Event struct {
	EmployeeNo string `json:"employeeNoString"`
	Timestamp  string `json:"time"` // ISO-8601 with the device offset
}

type Page struct {
	TotalMatches int
	Events       []Event
}

// Fetcher retrieves punch events for a time window, paginated. A
// count-only probe is FetchPage with limit 1: the page carries
// TotalMatches without the caller having to walk events.
//
// Each call is a long-blocking network operation with a minutes-scale
// timeout; callers must not assume sub-second latency.
type Fetcher interface {
	FetchPage(ctx context.Context, window SyncWindow, offset, limit int) (*Page, error)
}
