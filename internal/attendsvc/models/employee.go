package models

import "time"

// Employee is the bidirectional identity mapping between the ledger
// employee id and the device employee number.
type Employee struct {
	Employee     string    `json:"employee"`
	EmployeeName string    `json:"employee_name"`
	DeviceNo     string    `json:"device_no"`
	Status       string    `json:"status"` // 'Active' or 'Inactive'
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
