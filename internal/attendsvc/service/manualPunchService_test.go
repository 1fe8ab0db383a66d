package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
)

func newManualFixture(t *testing.T) (*ManualPunchService, *fakeLedger, *fakeManual) {
	t.Helper()

	employees := newFakeEmployees(
		models.Employee{Employee: "EMP250261", EmployeeName: "Abebe Bikila", DeviceNo: "105"},
		models.Employee{Employee: "EMP250262", EmployeeName: "Derartu Tulu", DeviceNo: "106"},
	)
	ledger := newFakeLedger()
	manual := newFakeManual()

	return NewManualPunchService(employees, ledger, manual), ledger, manual
}

func TestFoldAllInsertsSorted(t *testing.T) {
	svc, ledger, manual := newManualFixture(t)
	day := date("2025-05-01")

	// device punches land out of band before the fold
	for _, s := range []string{"10:00:00", "11:00:00"} {
		_, err := ledger.IngestPunch(context.Background(), "105", day, models.Punch{Time: mustClock(s), Type: models.PunchAuto})
		require.NoError(t, err)
	}

	_, err := manual.Insert(context.Background(), models.ManualPunchRequest{
		Employee: "EMP250261", PunchDate: day, PunchTime: mustClock("10:30:00"),
	})
	require.NoError(t, err)

	res := svc.FoldAll(context.Background())
	assert.Equal(t, models.StatusSuccess, res.Status)

	d, err := ledger.GetDay(context.Background(), "105", day)
	require.NoError(t, err)
	require.Len(t, d.Punches, 3)

	// the manual punch sits in time order, not append order
	assert.Equal(t, "10:00:00", d.Punches[0].Time.String())
	assert.Equal(t, "10:30:00", d.Punches[1].Time.String())
	assert.Equal(t, models.PunchManual, d.Punches[1].Type)
	assert.Equal(t, "11:00:00", d.Punches[2].Time.String())
}

func TestFoldAllIsIdempotent(t *testing.T) {
	svc, ledger, manual := newManualFixture(t)
	day := date("2025-05-01")

	_, err := manual.Insert(context.Background(), models.ManualPunchRequest{
		Employee: "EMP250261", PunchDate: day, PunchTime: mustClock("08:00:00"),
	})
	require.NoError(t, err)

	require.Equal(t, models.StatusSuccess, svc.FoldAll(context.Background()).Status)
	require.Equal(t, models.StatusSuccess, svc.FoldAll(context.Background()).Status)

	d, err := ledger.GetDay(context.Background(), "105", day)
	require.NoError(t, err)
	assert.Len(t, d.Punches, 1)
}

func TestFoldAllUnmappedEmployeeLeftPending(t *testing.T) {
	svc, ledger, manual := newManualFixture(t)
	day := date("2025-05-01")

	_, err := manual.Insert(context.Background(), models.ManualPunchRequest{
		Employee: "EMP999999", PunchDate: day, PunchTime: mustClock("08:00:00"),
	})
	require.NoError(t, err)
	_, err = manual.Insert(context.Background(), models.ManualPunchRequest{
		Employee: "EMP250262", PunchDate: day, PunchTime: mustClock("08:00:00"),
	})
	require.NoError(t, err)

	// the unmapped request does not block the mapped one
	res := svc.FoldAll(context.Background())
	assert.Equal(t, models.StatusSuccess, res.Status)

	d, err := ledger.GetDay(context.Background(), "106", day)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Len(t, d.Punches, 1)

	// the pending request survives for a later fold
	reqs, err := manual.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
}

func TestAddManualPunch(t *testing.T) {
	svc, ledger, manual := newManualFixture(t)
	day := date("2025-05-01")

	res := svc.Add(context.Background(), "EMP250261", day, mustClock("08:00:00"))
	assert.Equal(t, models.StatusSuccess, res.Status)

	reqs, err := manual.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "EMP250261", reqs[0].Employee)

	d, err := ledger.GetDay(context.Background(), "105", day)
	require.NoError(t, err)
	require.Len(t, d.Punches, 1)
	assert.Equal(t, models.PunchManual, d.Punches[0].Type)
}

func TestAddManualPunchDuplicateTime(t *testing.T) {
	svc, ledger, manual := newManualFixture(t)
	day := date("2025-05-01")

	_, err := ledger.IngestPunch(context.Background(), "105", day, models.Punch{
		Time: mustClock("08:00:00"), Type: models.PunchAuto,
	})
	require.NoError(t, err)

	res := svc.Add(context.Background(), "EMP250261", day, mustClock("08:00:00"))
	assert.Equal(t, models.StatusError, res.Status)
	assert.Contains(t, res.Message, "already exists")

	// the duplicate never became a durable request
	reqs, err := manual.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestAddManualPunchUnknownEmployee(t *testing.T) {
	svc, _, _ := newManualFixture(t)

	res := svc.Add(context.Background(), "EMP999999", date("2025-05-01"), mustClock("08:00:00"))
	assert.Equal(t, models.StatusError, res.Status)
	assert.Contains(t, res.Message, "attendance device id not found")
}

func TestRemoveManualPunch(t *testing.T) {
	svc, ledger, manual := newManualFixture(t)
	day := date("2025-05-01")

	_, err := ledger.IngestPunch(context.Background(), "105", day, models.Punch{
		Time: mustClock("09:00:00"), Type: models.PunchAuto,
	})
	require.NoError(t, err)

	require.Equal(t, models.StatusSuccess, svc.Add(context.Background(), "EMP250261", day, mustClock("08:00:00")).Status)

	reqs, err := manual.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	res := svc.Remove(context.Background(), reqs[0].ID)
	assert.Equal(t, models.StatusSuccess, res.Status)

	// the auto punch survives, the manual one is gone
	d, err := ledger.GetDay(context.Background(), "105", day)
	require.NoError(t, err)
	require.Len(t, d.Punches, 1)
	assert.Equal(t, models.PunchAuto, d.Punches[0].Type)

	left, err := manual.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRemoveManualPunchNotFound(t *testing.T) {
	svc, _, _ := newManualFixture(t)

	res := svc.Remove(context.Background(), 42)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Contains(t, res.Message, "not found")
}
