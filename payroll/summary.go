package payroll

import (
	"github.com/shopspring/decimal"

	"github.com/visualoscart/payroll-engine/generic"
)

// MonthTotals is the payroll expense of one month.
type MonthTotals struct {
	Period       generic.Month
	Currency     generic.Currency
	Receipts     int
	OnTimeAwards int
	EarlyAwards  int
	BaseSalaries decimal.Decimal
	Bonuses      decimal.Decimal
	Total        decimal.Decimal
}

// MonthlyTotals sums the receipts issued for period. Receipts of other
// months or in another currency are skipped.
func MonthlyTotals(receipts []generic.Receipt, period generic.Month, currency generic.Currency) MonthTotals {
	totals := MonthTotals{
		Period:       period,
		Currency:     currency,
		BaseSalaries: decimal.Zero,
		Bonuses:      decimal.Zero,
		Total:        decimal.Zero,
	}
	for _, r := range receipts {
		if r.Period != period || r.Total.Currency != currency {
			continue
		}
		totals.Receipts++
		if r.OnTimeBonus.Value.IsPositive() {
			totals.OnTimeAwards++
		}
		if r.EarlyBonus.Value.IsPositive() {
			totals.EarlyAwards++
		}
		totals.BaseSalaries = totals.BaseSalaries.Add(r.BaseSalary.Value)
		totals.Bonuses = totals.Bonuses.Add(r.OnTimeBonus.Value).Add(r.EarlyBonus.Value)
		totals.Total = totals.Total.Add(r.Total.Value)
	}
	return totals
}
