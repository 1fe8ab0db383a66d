package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/device"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/store"
)

// In-memory fakes for the store contracts.

func dayKey(employeeNo string, date time.Time) string {
	return employeeNo + "|" + date.Format("2006-01-02")
}

type fakeLedger struct {
	days    map[string]*models.AttendanceDay
	nextID  int64
	failFor map[string]bool // employeeNo -> force IngestPunch failure
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{days: make(map[string]*models.AttendanceDay), failFor: make(map[string]bool)}
}

func (f *fakeLedger) GetDay(ctx context.Context, employeeNo string, date time.Time) (*models.AttendanceDay, error) {
	day, ok := f.days[dayKey(employeeNo, date)]
	if !ok {
		return nil, nil
	}
	cp := *day
	cp.Punches = append([]models.Punch(nil), day.Punches...)
	return &cp, nil
}

func (f *fakeLedger) GetOrCreateDay(ctx context.Context, employeeNo string, date time.Time) (*models.AttendanceDay, error) {
	key := dayKey(employeeNo, date)
	if _, ok := f.days[key]; !ok {
		f.nextID++
		f.days[key] = &models.AttendanceDay{ID: f.nextID, EmployeeNo: employeeNo, EventDate: date}
	}
	return f.GetDay(ctx, employeeNo, date)
}

func (f *fakeLedger) IngestPunch(ctx context.Context, employeeNo string, date time.Time, punch models.Punch) (bool, error) {
	if f.failFor[employeeNo] {
		return false, errors.New("persistence failure")
	}

	if _, err := f.GetOrCreateDay(ctx, employeeNo, date); err != nil {
		return false, err
	}

	day := f.days[dayKey(employeeNo, date)]
	for _, p := range day.Punches {
		if p.Time == punch.Time {
			return false, nil
		}
	}
	day.Punches = append(day.Punches, punch)
	return true, nil
}

func (f *fakeLedger) ReplacePunches(ctx context.Context, dayID int64, punches []models.Punch) error {
	for _, day := range f.days {
		if day.ID == dayID {
			day.Punches = append([]models.Punch(nil), punches...)
			return nil
		}
	}
	return fmt.Errorf("day %d not found", dayID)
}

func (f *fakeLedger) GetByDate(ctx context.Context, date time.Time) ([]*models.AttendanceDay, error) {
	var days []*models.AttendanceDay
	for _, day := range f.days {
		if day.EventDate.Equal(date) {
			cp, _ := f.GetDay(ctx, day.EmployeeNo, day.EventDate)
			days = append(days, cp)
		}
	}
	return days, nil
}

func (f *fakeLedger) GetRange(ctx context.Context, employeeNo string, from, to time.Time) ([]*models.AttendanceDay, error) {
	var days []*models.AttendanceDay
	for _, day := range f.days {
		if day.EmployeeNo == employeeNo && !day.EventDate.Before(from) && !day.EventDate.After(to) {
			cp, _ := f.GetDay(ctx, day.EmployeeNo, day.EventDate)
			days = append(days, cp)
		}
	}
	return days, nil
}

func (f *fakeLedger) DeleteManualPunch(ctx context.Context, employeeNo string, date time.Time, t models.Clock) error {
	day, ok := f.days[dayKey(employeeNo, date)]
	if !ok {
		return nil
	}
	kept := day.Punches[:0]
	for _, p := range day.Punches {
		if !(p.Type == models.PunchManual && p.Time == t) {
			kept = append(kept, p)
		}
	}
	day.Punches = kept
	return nil
}

type fakeManual struct {
	reqs       []models.ManualPunchRequest
	nextID     int64
	failInsert bool
}

func newFakeManual() *fakeManual { return &fakeManual{} }

func (f *fakeManual) Insert(ctx context.Context, req models.ManualPunchRequest) (int64, error) {
	if f.failInsert {
		return 0, errors.New("insert failure")
	}
	f.nextID++
	req.ID = f.nextID
	f.reqs = append(f.reqs, req)
	return req.ID, nil
}

// InsertPair persists both requests or neither, like the pg store.
func (f *fakeManual) InsertPair(ctx context.Context, in, out models.ManualPunchRequest) error {
	if f.failInsert {
		return errors.New("insert failure")
	}
	for _, req := range []models.ManualPunchRequest{in, out} {
		if _, err := f.Insert(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeManual) CountForEmployeeDate(ctx context.Context, employee string, date time.Time) (int, error) {
	count := 0
	for _, r := range f.reqs {
		if r.Employee == employee && r.PunchDate.Equal(date) {
			count++
		}
	}
	return count, nil
}

func (f *fakeManual) ListAll(ctx context.Context) ([]models.ManualPunchRequest, error) {
	return append([]models.ManualPunchRequest(nil), f.reqs...), nil
}

func (f *fakeManual) ListRange(ctx context.Context, from, to time.Time) ([]models.ManualPunchRequest, error) {
	var out []models.ManualPunchRequest
	for _, r := range f.reqs {
		if !r.PunchDate.Before(from) && !r.PunchDate.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeManual) GetByID(ctx context.Context, id int64) (*models.ManualPunchRequest, error) {
	for _, r := range f.reqs {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeManual) Delete(ctx context.Context, id int64) error {
	kept := f.reqs[:0]
	for _, r := range f.reqs {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.reqs = kept
	return nil
}

type fakeEmployees struct {
	byEmployee map[string]models.Employee
}

func newFakeEmployees(employees ...models.Employee) *fakeEmployees {
	f := &fakeEmployees{byEmployee: make(map[string]models.Employee)}
	for _, e := range employees {
		if e.Status == "" {
			e.Status = "Active"
		}
		f.byEmployee[e.Employee] = e
	}
	return f
}

func (f *fakeEmployees) GetByEmployee(ctx context.Context, employee string) (*models.Employee, error) {
	e, ok := f.byEmployee[employee]
	if !ok {
		return nil, store.ErrMappingNotFound
	}
	return &e, nil
}

func (f *fakeEmployees) GetByDeviceNo(ctx context.Context, deviceNo string) (*models.Employee, error) {
	for _, e := range f.byEmployee {
		if e.DeviceNo == deviceNo {
			cp := e
			return &cp, nil
		}
	}
	return nil, store.ErrMappingNotFound
}

func (f *fakeEmployees) ListActive(ctx context.Context) ([]models.Employee, error) {
	var out []models.Employee
	for _, e := range f.byEmployee {
		if e.Status == "Active" {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeFetcher serves a fixed event list with device-style pagination.
type fakeFetcher struct {
	events        []device.Event
	totalOverride int // when > 0, reported instead of len(events)
	pageCalls     int
	failOnCall    int // when > 0, that FetchPage call fails
}

func (f *fakeFetcher) FetchPage(ctx context.Context, window device.SyncWindow, offset, limit int) (*device.Page, error) {
	f.pageCalls++
	if f.failOnCall > 0 && f.pageCalls == f.failOnCall {
		return nil, errors.New("fetch failure")
	}

	total := len(f.events)
	if f.totalOverride > 0 {
		total = f.totalOverride
	}

	if offset >= len(f.events) {
		return &device.Page{TotalMatches: total}, nil
	}
	end := offset + limit
	if end > len(f.events) {
		end = len(f.events)
	}
	return &device.Page{TotalMatches: total, Events: f.events[offset:end]}, nil
}

type fakeAudit struct {
	runs []models.SyncRun
}

func (f *fakeAudit) RecordRun(ctx context.Context, run models.SyncRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func mustClock(s string) models.Clock {
	c, err := models.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
