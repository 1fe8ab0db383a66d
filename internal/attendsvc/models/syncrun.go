package models

import "time"

// SyncRun is the audit document written for every sync attempt. Runs
// expire out of the audit collection via a TTL index on ExpiresAt.
type SyncRun struct {
	RunID        string    `bson:"run_id" json:"run_id"`
	WindowStart  time.Time `bson:"window_start" json:"window_start"`
	WindowEnd    time.Time `bson:"window_end" json:"window_end"`
	TotalMatches int       `bson:"total_matches" json:"total_matches"`
	Synced       int       `bson:"synced" json:"synced"`
	Skipped      int       `bson:"skipped" json:"skipped"`
	Status       string    `bson:"status" json:"status"`
	Message      string    `bson:"message,omitempty" json:"message,omitempty"`
	StartedAt    time.Time `bson:"started_at" json:"started_at"`
	FinishedAt   time.Time `bson:"finished_at" json:"finished_at"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
}
