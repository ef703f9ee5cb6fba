package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is an inclusive range of days [Start, End].
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// MONTH - The evaluation and payroll period
// =============================================================================

// Month identifies a calendar month. Bonuses are evaluated and receipts
// issued per Month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month (UTC) containing t.
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) Previous() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Contains reports whether the day falls in this month.
func (m Month) Contains(tp TimePoint) bool {
	return tp.Year() == m.Year && tp.Month() == m.Month
}

// Period returns the month as an inclusive day range.
func (m Month) Period() Period {
	return Period{Start: StartOfMonth(m.Year, m.Month), End: EndOfMonth(m.Year, m.Month)}
}

func (m Month) IsValid() bool {
	return m.Year > 0 && m.Month >= time.January && m.Month <= time.December
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
