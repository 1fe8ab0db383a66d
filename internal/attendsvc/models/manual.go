package models

import "time"

// ManualPunchRequest is the durable correction record. It lives
// independently of the ledger and is folded into the matching
// AttendanceDay by the normalization pass.
type ManualPunchRequest struct {
	ID        int64     `json:"id"`
	Employee  string    `json:"employee"` // ledger-level identity, not the device no
	PunchDate time.Time `json:"punch_date"`
	PunchTime Clock     `json:"punch_time"`
	CreatedAt time.Time `json:"created_at"`
}
