package domain

import "time"

// Season labels derived from fixed solstice/equinox boundaries.
const (
	SeasonWinter = "Winter"
	SeasonSpring = "Spring"
	SeasonSummer = "Summer"
	SeasonFall   = "Fall"
)

// Boundary is a year-independent calendar cut point.
type Boundary struct {
	Month time.Month
	Day   int
}

// Fixed season boundaries. The same constants drive both the per-observation
// classifier and the weather aggregation windows, so a boundary change cannot
// drift between the two.
var (
	WinterStart = Boundary{time.December, 21}
	SpringStart = Boundary{time.March, 21}
	SummerStart = Boundary{time.June, 21}
	FallStart   = Boundary{time.September, 21}
)

// In materializes the boundary as midnight UTC in the given year.
func (b Boundary) In(year int) time.Time {
	return time.Date(year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
}

// beforeBoundary reports whether the date's month/day falls before the
// boundary, ignoring the year.
func beforeBoundary(date time.Time, b Boundary) bool {
	m, d := date.Month(), date.Day()
	return m < b.Month || (m == b.Month && d < b.Day)
}

// Season classifies a date into Winter, Spring, Summer, or Fall by month/day
// only; the year is ignored. Intervals are half-open on their start boundary:
// Winter = [Dec 21, Mar 21), Spring = [Mar 21, Jun 21), Summer = [Jun 21,
// Sep 21), Fall = [Sep 21, Dec 21). Dec 21 wraps the year end.
func Season(date time.Time) string {
	switch {
	case !beforeBoundary(date, WinterStart) || beforeBoundary(date, SpringStart):
		return SeasonWinter
	case beforeBoundary(date, SummerStart):
		return SeasonSpring
	case beforeBoundary(date, FallStart):
		return SeasonSummer
	default:
		return SeasonFall
	}
}

// MonthName returns the full English month name for a date.
func MonthName(date time.Time) string {
	return date.Month().String()
}
