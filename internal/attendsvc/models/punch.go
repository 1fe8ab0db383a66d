package models

type PunchType string

const (
	PunchAuto   PunchType = "Auto"   // captured from the access control device
	PunchManual PunchType = "Manual" // injected by an administrative correction
)

type Punch struct {
	Time Clock     `json:"punch_time"`
	Type PunchType `json:"punch_type"`
}
