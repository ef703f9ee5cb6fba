package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visualoscart/payroll-engine/generic"
)

func TestMonth_PreviousAndNextWrapYears(t *testing.T) {
	jan := generic.Month{Year: 2026, Month: time.January}

	assert.Equal(t, generic.Month{Year: 2025, Month: time.December}, jan.Previous())
	assert.Equal(t, jan, jan.Previous().Next())
}

func TestMonth_Contains(t *testing.T) {
	m := generic.MonthOf(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC))

	assert.True(t, m.Contains(generic.NewTimePoint(2025, time.March, 1)))
	assert.True(t, m.Contains(generic.NewTimePoint(2025, time.March, 31)))
	assert.False(t, m.Contains(generic.NewTimePoint(2025, time.April, 1)))
	assert.False(t, m.Contains(generic.NewTimePoint(2024, time.March, 15)))
}

func TestMonth_PeriodCoversAllDays(t *testing.T) {
	p := generic.Month{Year: 2024, Month: time.February}.Period()

	assert.Equal(t, 29, p.End.Day())
	assert.Equal(t, "[2024-02-01, 2024-02-29]", p.String())
}

func TestParseMonth(t *testing.T) {
	m, err := generic.ParseMonth("2025-11")
	require.NoError(t, err)
	assert.Equal(t, "2025-11", m.String())
	assert.True(t, m.IsValid())

	_, err = generic.ParseMonth("November")
	assert.True(t, errors.Is(err, generic.ErrInvalidPeriod))
	assert.True(t, generic.IsClientError(err))
}
