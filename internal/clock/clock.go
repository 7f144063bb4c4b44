// Package clock holds the UTC calendar arithmetic shared by the scheduler
// jobs. Wall-clock time itself comes from an injected clockwork.Clock.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source injected into every service.
type Clock = clockwork.Clock

// Real returns the system clock.
func Real() Clock { return clockwork.NewRealClock() }

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole UTC calendar days from a to b. It is negative when
// b is on an earlier day than a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonth moves t forward one calendar month, clamping to the last day of the
// target month (Jan 31 -> Feb 28).
func AddMonth(t time.Time) time.Time {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month()+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
