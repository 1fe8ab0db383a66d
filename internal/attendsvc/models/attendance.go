package models

import "time"

// AttendanceDay is the punch ledger for one employee on one calendar
// date. Punches are not guaranteed to be stored sorted; consumers sort
// by time before pairing.
type AttendanceDay struct {
	ID         int64     `json:"id"`
	EmployeeNo string    `json:"employee_no"` // device-scoped identifier
	EventDate  time.Time `json:"event_date"`
	Punches    []Punch   `json:"punches"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
