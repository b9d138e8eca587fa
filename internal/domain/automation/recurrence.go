package automation

import (
	"fmt"
	"time"
)

// LocalTime is a wall-clock time of day without a date or zone.
type LocalTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseLocalTime parses an "HH:MM:SS" string as stored on an automation.
func ParseLocalTime(s string) (LocalTime, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return LocalTime{}, fmt.Errorf("invalid send time %q: %w", s, err)
	}
	return LocalTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func (lt LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", lt.Hour, lt.Minute, lt.Second)
}

// NextRun computes the next UTC instant at which an automation with the given
// local send time and zone should fire, relative to ref.
//
// The candidate is the send time on ref's calendar date in the automation's
// zone; if that has already passed (or is exactly now) the candidate moves to
// the next calendar day. The result is strictly later than ref.
//
// A local time skipped or repeated by a DST transition is not specially
// handled; whichever instant the zone database resolves to is returned.
func NextRun(sendTime LocalTime, timezone string, ref time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	local := ref.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(),
		sendTime.Hour, sendTime.Minute, sendTime.Second, 0, loc)
	if !candidate.After(ref) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.UTC(), nil
}
