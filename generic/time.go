package generic

import (
	"math"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day, always UTC
// =============================================================================

// TimePoint is a calendar day pinned to 00:00 UTC. Task deadlines are
// TimePoints; completion stamps are plain time.Time values and never
// TimePoints.
type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day (UTC) that contains t.
func DayOf(t time.Time) TimePoint {
	u := t.UTC()
	return NewTimePoint(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return NewTimePoint(t.Year(), t.Month(), t.Day()), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

// Instant returns 00:00 UTC of the day, the deadline instant used by the
// bonus rules.
func (tp TimePoint) Instant() time.Time { return tp.normalize() }

func (tp TimePoint) normalize() time.Time {
	t := tp.Time.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int         { return tp.normalize().Year() }
func (tp TimePoint) Month() time.Month { return tp.normalize().Month() }
func (tp TimePoint) Day() int          { return tp.normalize().Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.normalize().Format(DateLayout) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

// WholeDaysBefore returns how many whole days t lies before the start of
// deadline, truncated toward negative infinity. 6 days and 23 hours is 6;
// anything after the deadline instant is negative.
func WholeDaysBefore(t time.Time, deadline TimePoint) int {
	d := deadline.Instant().Sub(t.UTC())
	return int(math.Floor(d.Hours() / 24))
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return TimePoint{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}
