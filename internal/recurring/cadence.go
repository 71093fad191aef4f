package recurring

import (
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// divisionPrecision bounds the digits kept by divisor cadences before the
// final two-place rounding.
const divisionPrecision = 16

// Cadence converts one charge at a billing frequency into its average monthly cost.
type Cadence interface {
	Monthly(amount decimal.Decimal) decimal.Decimal
}

// Multiplier charges Factor times a month.
type Multiplier struct {
	Factor decimal.Decimal
}

func (m Multiplier) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(m.Factor)
}

// Divisor charges once every Months months.
type Divisor struct {
	Months decimal.Decimal
}

func (d Divisor) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount.DivRound(d.Months, divisionPrecision)
}

// The weekly and bi-weekly factors are the rounded 52/12 and 26/12 the
// dashboard has always shown.
var cadences = map[core.Frequency]Cadence{
	core.Daily:     Multiplier{Factor: decimal.NewFromInt(30)},
	core.Weekly:    Multiplier{Factor: decimal.RequireFromString("4.33")},
	core.BiWeekly:  Multiplier{Factor: decimal.RequireFromString("2.17")},
	core.Monthly:   Multiplier{Factor: decimal.NewFromInt(1)},
	core.Quarterly: Divisor{Months: decimal.NewFromInt(3)},
	core.Yearly:    Divisor{Months: decimal.NewFromInt(12)},
}

// CadenceFor returns the cadence of f. Unrecognized frequencies count as
// one charge per month.
func CadenceFor(f core.Frequency) Cadence {
	if c, ok := cadences[f]; ok {
		return c
	}
	return cadences[core.Monthly]
}

// MonthlyEquivalent is the unrounded monthly cost of r, zero when r is inactive.
func MonthlyEquivalent(r core.RecurringExpense) decimal.Decimal {
	if !r.Active {
		return decimal.Zero
	}
	return CadenceFor(r.Frequency).Monthly(r.Amount)
}

// MonthlyTotal sums the monthly equivalents at full precision and rounds
// half-up to cents once at the end.
func MonthlyTotal(records []core.RecurringExpense) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(MonthlyEquivalent(r))
	}
	return sum.Round(2)
}
