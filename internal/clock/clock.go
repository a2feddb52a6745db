package clock

import "time"

// DateLayout is the canonical calendar-date format used throughout the
// service. Dates in this format compare correctly as plain strings.
const DateLayout = "2006-01-02"

// Clock supplies the current instant. Handlers and workers take a Clock
// instead of calling time.Now directly so tests can pin the time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by the real wall clock.
func System() Clock { return systemClock{} }

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// StartOfDay truncates an instant to midnight in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// AddDays shifts a date by n calendar days. DST transitions are handled by
// AddDate, so adding a day across a transition still lands on midnight.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b (positive when
// b is after a). Both arguments are treated at date granularity.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateString(a, loc) == DateString(b, loc)
}

// FormatDate renders t as a calendar date in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a canonical calendar date. The returned time is midnight
// UTC; callers that need a zoned instant should rebuild it in their location.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateString returns the calendar date of instant t in the given location.
func DateString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}
