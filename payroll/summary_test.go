package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/visualoscart/payroll-engine/generic"
	"github.com/visualoscart/payroll-engine/payroll"
)

func receipt(collab string, period generic.Month, base, onTime, early int) generic.Receipt {
	return generic.Receipt{
		CollaboratorID: generic.CollaboratorID(collab),
		Period:         period,
		BaseSalary:     eur(base),
		OnTimeBonus:    eur(onTime),
		EarlyBonus:     eur(early),
		Total:          eur(base + onTime + early),
	}
}

func TestMonthlyTotals(t *testing.T) {
	march := generic.Month{Year: 2025, Month: time.March}
	receipts := []generic.Receipt{
		receipt("ana", march, 1500, 10, 20),
		receipt("ben", march, 1200, 10, 0),
		receipt("cleo", march, 900, 0, 0),
		receipt("ana", march.Previous(), 1500, 10, 20),
	}

	totals := payroll.MonthlyTotals(receipts, march, generic.CurrencyEUR)

	assert.Equal(t, 3, totals.Receipts)
	assert.Equal(t, 2, totals.OnTimeAwards)
	assert.Equal(t, 1, totals.EarlyAwards)
	assert.Equal(t, "3600", totals.BaseSalaries.String())
	assert.Equal(t, "40", totals.Bonuses.String())
	assert.Equal(t, "3640", totals.Total.String())
}

func TestMonthlyTotals_Empty(t *testing.T) {
	totals := payroll.MonthlyTotals(nil, generic.Month{Year: 2025, Month: time.May}, generic.CurrencyEUR)

	assert.Zero(t, totals.Receipts)
	assert.True(t, totals.Total.IsZero())
}
