package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/pairing"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/store"

	"github.com/shopspring/decimal"
)

// ReportService serves the read-only projections of the ledger. It
// never mutates anything: pairing and parity inference follow the same
// sort-then-even/odd rule the correction engine uses.
type ReportService struct {
	employees Employees
	ledger    AttendanceLedger
	manual    ManualPunches
}

func NewReportService(employees Employees, ledger AttendanceLedger, manual ManualPunches) *ReportService {
	return &ReportService{
		employees: employees,
		ledger:    ledger,
		manual:    manual,
	}
}

type DailyRow struct {
	EmployeeName  string   `json:"employee_name"`
	EmployeeNo    string   `json:"employee_no"`
	TotalDuration string   `json:"total_duration"` // HH:MM, or "Check" for an odd punch count
	Punches       []string `json:"punches"`        // HH:MM, manual punches marked "(MA)"
}

type DailyReport struct {
	Date          string     `json:"date"`
	Rows          []DailyRow `json:"rows"`
	Present       int        `json:"present"`
	TotalDuration string     `json:"total_duration"`
	Absent        []DailyRow `json:"absent"`
}

// Daily lists every employee with a ledger on the date, one row each,
// followed by the active employees with no ledger at all.
func (s *ReportService) Daily(ctx context.Context, date time.Time) (*DailyReport, error) {
	days, err := s.ledger.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	report := &DailyReport{Date: date.Format("2006-01-02")}
	totalMinutes := 0
	present := make(map[string]bool)

	for _, day := range days {
		present[day.EmployeeNo] = true

		row := DailyRow{EmployeeNo: day.EmployeeNo}
		if emp, err := s.employees.GetByDeviceNo(ctx, day.EmployeeNo); err == nil {
			row.EmployeeName = emp.EmployeeName
		} else if !errors.Is(err, store.ErrMappingNotFound) {
			return nil, err
		}

		sorted := pairing.Sorted(day.Punches)
		for _, p := range sorted {
			cell := p.Time.HHMM()
			if p.Type == models.PunchManual {
				cell += " (MA)"
			}
			row.Punches = append(row.Punches, cell)
		}

		minutes, check := pairing.Total(sorted, pairing.ModeFlagCheck)
		if check {
			row.TotalDuration = "Check"
		} else {
			row.TotalDuration = formatMinutesHHMM(minutes)
			totalMinutes += minutes
		}

		report.Rows = append(report.Rows, row)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return naturalLess(report.Rows[i].EmployeeNo, report.Rows[j].EmployeeNo)
	})

	report.Present = len(report.Rows)
	report.TotalDuration = formatMinutesHHMM(totalMinutes)

	active, err := s.employees.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, emp := range active {
		if !present[emp.DeviceNo] {
			report.Absent = append(report.Absent, DailyRow{
				EmployeeName: emp.EmployeeName,
				EmployeeNo:   emp.DeviceNo,
			})
		}
	}

	return report, nil
}

type MonthlyRow struct {
	EmployeeName  string            `json:"employee_name"`
	Employee      string            `json:"employee"`
	EmployeeNo    string            `json:"employee_no"`
	Days          map[string]string `json:"days"` // YYYY-MM-DD -> HH:MM
	TotalDuration string            `json:"total_duration"`
	TotalHours    string            `json:"total_hours"` // decimal hours, 4 places
}

type MonthlyReport struct {
	Year          int          `json:"year"`
	Month         int          `json:"month"`
	Rows          []MonthlyRow `json:"rows"`
	TotalDuration string       `json:"total_duration"`
	TotalHours    string       `json:"total_hours"`
}

// Monthly aggregates per-day durations for every active employee over
// one calendar month. Odd punch counts drop the trailing punch rather
// than flagging the day.
func (s *ReportService) Monthly(ctx context.Context, year, month int, employee string) (*MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	active, err := s.employees.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{Year: year, Month: month}
	grandTotal := 0

	for _, emp := range active {
		if employee != "" && emp.Employee != employee {
			continue
		}

		row := MonthlyRow{
			EmployeeName: emp.EmployeeName,
			Employee:     emp.Employee,
			EmployeeNo:   emp.DeviceNo,
			Days:         make(map[string]string),
		}

		days, err := s.ledger.GetRange(ctx, emp.DeviceNo, first, last)
		if err != nil {
			return nil, err
		}

		totalMinutes := 0
		for _, day := range days {
			if len(day.Punches) < 2 {
				continue
			}
			minutes, _ := pairing.Total(day.Punches, pairing.ModeDropLast)
			if minutes <= 0 {
				continue
			}
			row.Days[day.EventDate.Format("2006-01-02")] = formatMinutesHHMM(minutes)
			totalMinutes += minutes
		}

		row.TotalDuration = formatMinutesHHMM(totalMinutes)
		row.TotalHours = decimalHours(totalMinutes)
		grandTotal += totalMinutes

		report.Rows = append(report.Rows, row)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return naturalLess(report.Rows[i].EmployeeNo, report.Rows[j].EmployeeNo)
	})

	report.TotalDuration = formatMinutesHHMM(grandTotal)
	report.TotalHours = decimalHours(grandTotal)

	return report, nil
}

type ManualPunchRow struct {
	Employee     string       `json:"employee"`
	EmployeeName string       `json:"employee_name"`
	PunchDate    string       `json:"punch_date"`
	PunchTime    models.Clock `json:"punch_time"`
}

func (s *ReportService) ManualPunches(ctx context.Context, from, to time.Time) ([]ManualPunchRow, error) {
	reqs, err := s.manual.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	rows := make([]ManualPunchRow, 0, len(reqs))
	for _, req := range reqs {
		row := ManualPunchRow{
			Employee:  req.Employee,
			PunchDate: req.PunchDate.Format("2006-01-02"),
			PunchTime: req.PunchTime,
		}
		if emp, err := s.employees.GetByEmployee(ctx, req.Employee); err == nil {
			row.EmployeeName = emp.EmployeeName
		} else if !errors.Is(err, store.ErrMappingNotFound) {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Ledger returns one employee-day with punches sorted ascending.
// Deduplicated but not paired: parity inference is the caller's job.
func (s *ReportService) Ledger(ctx context.Context, employeeNo string, date time.Time) (*models.AttendanceDay, error) {
	day, err := s.ledger.GetDay(ctx, employeeNo, date)
	if err != nil || day == nil {
		return day, err
	}
	day.Punches = pairing.Sorted(day.Punches)
	return day, nil
}

func (s *ReportService) LedgerRange(ctx context.Context, employeeNo string, from, to time.Time) ([]*models.AttendanceDay, error) {
	days, err := s.ledger.GetRange(ctx, employeeNo, from, to)
	if err != nil {
		return nil, err
	}
	for _, day := range days {
		day.Punches = pairing.Sorted(day.Punches)
	}
	return days, nil
}

func formatMinutesHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func decimalHours(minutes int) string {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).StringFixed(4)
}

// naturalLess orders pure-numeric employee numbers numerically and
// falls back to string order for mixed identifiers.
func naturalLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
