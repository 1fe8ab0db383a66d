package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/pairing"
)

func newCorrectionFixture(t *testing.T) (*CorrectionService, *fakeLedger, *fakeManual) {
	t.Helper()

	employees := newFakeEmployees(models.Employee{
		Employee:     "EMP250261",
		EmployeeName: "Abebe Bikila",
		DeviceNo:     "105",
	})
	ledger := newFakeLedger()
	manual := newFakeManual()
	folder := NewManualPunchService(employees, ledger, manual)

	return NewCorrectionService(employees, ledger, manual, folder), ledger, manual
}

func seedAutoPunches(t *testing.T, ledger *fakeLedger, deviceNo string, day time.Time, times ...string) {
	t.Helper()
	for _, s := range times {
		created, err := ledger.IngestPunch(context.Background(), deviceNo, day, models.Punch{
			Time: mustClock(s),
			Type: models.PunchAuto,
		})
		require.NoError(t, err)
		require.True(t, created)
	}
}

// foldedTotal re-reads the employee-day and re-derives the paired total
// the way the reports do.
func foldedTotal(t *testing.T, ledger *fakeLedger, deviceNo string, day time.Time) int {
	t.Helper()
	d, err := ledger.GetDay(context.Background(), deviceNo, day)
	require.NoError(t, err)
	require.NotNil(t, d)
	total, check := pairing.Total(pairing.Sorted(d.Punches), pairing.ModeFlagCheck)
	require.False(t, check, "corrected day must have an even punch count")
	return total
}

func manualTimes(t *testing.T, manual *fakeManual) []string {
	t.Helper()
	reqs, err := manual.ListAll(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.PunchTime.String())
	}
	return out
}

func TestCorrectDeficitPadsFromEight(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	seedAutoPunches(t, ledger, "105", day, "09:00:00", "09:20:00")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSuccess, res.Status)

	// 20 worked minutes leave a 40 minute block anchored at 08:00
	assert.Equal(t, []string{"08:00:00", "08:40:00"}, manualTimes(t, manual))
	assert.Equal(t, TargetMinutes, foldedTotal(t, ledger, "105", day))
}

func TestCorrectSurplusCarvesBreakFromLongestPair(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	seedAutoPunches(t, ledger, "105", day, "09:00:00", "09:20:00", "10:00:00", "10:50:00")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSuccess, res.Status)

	// 70 worked minutes: a 10 minute break carved from the middle of
	// the 50 minute pair
	assert.Equal(t, []string{"10:20:00", "10:30:00"}, manualTimes(t, manual))
	assert.Equal(t, TargetMinutes, foldedTotal(t, ledger, "105", day))
}

func TestCorrectExactTotalNeedsNoPunches(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	seedAutoPunches(t, ledger, "105", day, "09:00:00", "10:00:00")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Empty(t, manualTimes(t, manual))
	assert.Equal(t, TargetMinutes, foldedTotal(t, ledger, "105", day))
}

func TestCorrectSecondsIgnoredInTotals(t *testing.T) {
	svc, ledger, _ := newCorrectionFixture(t)
	day := date("2025-05-01")
	// 09:00:59 to 10:00:01 is exactly 60 whole minutes
	seedAutoPunches(t, ledger, "105", day, "09:00:59", "10:00:01")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Contains(t, res.Message, "no manual punch needed")
}

func TestCorrectNoDataSkips(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSkipped, res.Status)
	assert.Contains(t, res.Message, "no auto punches")
	assert.Empty(t, manualTimes(t, manual))
	assert.Empty(t, ledger.days)
}

func TestCorrectNoDataStillFoldsPendingRequests(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	other := date("2025-04-30")

	_, err := manual.Insert(context.Background(), models.ManualPunchRequest{
		Employee:  "EMP250261",
		PunchDate: other,
		PunchTime: mustClock("08:00:00"),
	})
	require.NoError(t, err)

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSkipped, res.Status)

	// the normalize side-effect ran even though the target day had no data
	d, err := ledger.GetDay(context.Background(), "105", other)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Len(t, d.Punches, 1)
	assert.Equal(t, models.PunchManual, d.Punches[0].Type)
}

func TestCorrectInsufficientPunchesSkips(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	seedAutoPunches(t, ledger, "105", day, "09:00:00")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSkipped, res.Status)
	assert.Contains(t, res.Message, "need at least 2")
	assert.Empty(t, manualTimes(t, manual))
}

func TestCorrectIsIdempotent(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	seedAutoPunches(t, ledger, "105", day, "09:00:00", "09:20:00")

	first := svc.Correct(context.Background(), "EMP250261", day)
	require.Equal(t, models.StatusSuccess, first.Status)

	second := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSkipped, second.Status)
	assert.Contains(t, second.Message, "already exist")

	// still exactly one correction's worth of requests and punches
	assert.Len(t, manualTimes(t, manual), 2)
	assert.Equal(t, TargetMinutes, foldedTotal(t, ledger, "105", day))
}

func TestCorrectUnknownEmployeeErrors(t *testing.T) {
	svc, _, _ := newCorrectionFixture(t)

	res := svc.Correct(context.Background(), "EMP999999", date("2025-05-01"))
	assert.Equal(t, models.StatusError, res.Status)
	assert.Contains(t, res.Message, "attendance device id not found")
}

func TestCorrectSurplusTooLargeToCarve(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	// three equal 30 minute pairs: excess 30 equals the longest pair,
	// leaving no interior to carve from
	seedAutoPunches(t, ledger, "105", day,
		"08:00:00", "08:30:00",
		"09:00:00", "09:30:00",
		"10:00:00", "10:30:00")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Contains(t, res.Message, "cannot adjust time")
	assert.Empty(t, manualTimes(t, manual))
}

func TestCorrectPairInsertFailureLeavesNothingBehind(t *testing.T) {
	employees := newFakeEmployees(models.Employee{
		Employee:     "EMP250261",
		EmployeeName: "Abebe Bikila",
		DeviceNo:     "105",
	})
	ledger := newFakeLedger()
	manual := newFakeManual()
	folder := NewManualPunchService(employees, ledger, manual)
	svc := NewCorrectionService(employees, ledger, manual, folder)

	day := date("2025-05-01")
	seedAutoPunches(t, ledger, "105", day, "09:00:00", "09:20:00")

	manual.failInsert = true
	first := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusError, first.Status)

	// the failed pair must not trip the idempotence guard on retry
	assert.Empty(t, manualTimes(t, manual))

	manual.failInsert = false
	second := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSuccess, second.Status)
	assert.Equal(t, []string{"08:00:00", "08:40:00"}, manualTimes(t, manual))
	assert.Equal(t, TargetMinutes, foldedTotal(t, ledger, "105", day))
}

// Known edge, faithful to the device-side behavior: an Auto punch at
// exactly 08:00:00 swallows the deficit pad's IN during the fold dedup,
// so the day ends with an odd count and stays below the target.
func TestCorrectDeficitPadCollidesWithEightOClockPunch(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	seedAutoPunches(t, ledger, "105", day, "08:00:00", "08:20:00")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, []string{"08:00:00", "08:40:00"}, manualTimes(t, manual))

	d, err := ledger.GetDay(context.Background(), "105", day)
	require.NoError(t, err)
	require.Len(t, d.Punches, 3) // the 08:00:00 pad deduped against the Auto punch

	total, _ := pairing.Total(pairing.Sorted(d.Punches), pairing.ModeDropLast)
	assert.Equal(t, 20, total)
}

func TestCorrectOddPunchCountDropsTrailing(t *testing.T) {
	svc, ledger, manual := newCorrectionFixture(t)
	day := date("2025-05-01")
	// the unpaired 11:00 punch does not count toward the total, so the
	// worked 20 minutes still get a 40 minute pad
	seedAutoPunches(t, ledger, "105", day, "09:00:00", "09:20:00", "11:00:00")

	res := svc.Correct(context.Background(), "EMP250261", day)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, []string{"08:00:00", "08:40:00"}, manualTimes(t, manual))
}
