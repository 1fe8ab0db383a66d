package models

import (
	"fmt"
	"time"
)

// Clock is a time of day with second precision, stored as seconds
// since midnight. Punch arithmetic works on whole minutes, each side
// truncated, so 09:00:59 to 09:20:01 is still 20 minutes.
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time format %q: %w", s, err)
	}
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

func ClockFromTime(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, int(c)%3600/60, int(c)%60)
}

// Minutes truncates to whole minutes since midnight.
func (c Clock) Minutes() int {
	return int(c) / 60
}

func (c Clock) TruncateMinute() Clock {
	return Clock(int(c) / 60 * 60)
}

func (c Clock) AddMinutes(m int) Clock {
	return Clock(int(c) + m*60)
}

// HHMM renders the clock without seconds, the form the reports use.
func (c Clock) HHMM() string {
	return fmt.Sprintf("%02d:%02d", int(c)/3600, int(c)%3600/60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid clock value %s", string(data))
	}
	parsed, err := ParseClock(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
