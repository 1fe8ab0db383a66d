// Package pairing owns the IN/OUT inference for punch ledgers.
//
// No IN/OUT tag is ever persisted: after sorting a day's punches by
// time, even positions are IN and odd positions are OUT. Inserting a
// punch shifts the parity of everything after it, so every consumer
// must go through this package rather than pairing by hand.
package pairing

import (
	"sort"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"
)

// Mode selects what to do with an odd punch count.
type Mode int

const (
	// ModeDropLast ignores the trailing unpaired punch (monthly view).
	ModeDropLast Mode = iota
	// ModeFlagCheck refuses to total the day (daily view).
	ModeFlagCheck
)

// Pair is one IN/OUT interval.
type Pair struct {
	In  models.Clock
	Out models.Clock
}

// Minutes is the paired duration, each side truncated to the whole
// minute. May be negative if the alternation assumption was violated
// upstream; callers get the computed number either way.
func (p Pair) Minutes() int {
	return p.Out.Minutes() - p.In.Minutes()
}

// Sorted returns a copy of punches ordered ascending by time of day.
func Sorted(punches []models.Punch) []models.Punch {
	out := make([]models.Punch, len(punches))
	copy(out, punches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Pairs sorts and groups punches into IN/OUT intervals by position
// parity. With an odd count the trailing punch is left unpaired.
func Pairs(punches []models.Punch) []Pair {
	sorted := Sorted(punches)

	pairs := make([]Pair, 0, len(sorted)/2)
	for i := 0; i+1 < len(sorted); i += 2 {
		pairs = append(pairs, Pair{In: sorted[i].Time, Out: sorted[i+1].Time})
	}
	return pairs
}

// Total sums the paired minutes of a day's punches.
//
// The check flag is only ever true in ModeFlagCheck, when the count is
// odd and the day cannot be resolved into pairs.
func Total(punches []models.Punch, mode Mode) (minutes int, check bool) {
	if len(punches)%2 != 0 && mode == ModeFlagCheck {
		return 0, true
	}

	for _, p := range Pairs(punches) {
		minutes += p.Minutes()
	}
	return minutes, false
}
