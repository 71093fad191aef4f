package recurring

import (
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// Row is one record with its derived countdown and monthly cost.
type Row struct {
	core.RecurringExpense
	DaysUntil         int             `json:"daysUntil"`
	Urgency           Urgency         `json:"urgency"`
	MonthlyEquivalent decimal.Decimal `json:"monthlyEquivalent"`
}

type Summary struct {
	AsOf         core.Date       `json:"asOf"`
	Rows         []Row           `json:"rows"`
	MonthlyTotal decimal.Decimal `json:"monthlyTotal"`
	ActiveCount  int             `json:"activeCount"`
}

// Aggregator evaluates canonical records against its clock.
type Aggregator struct {
	clock core.Clock
}

func NewAggregator(clock core.Clock) *Aggregator {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Aggregator{clock: clock}
}

// Summarize keeps input order. Per-row monthly figures are rounded for
// display; the total is computed from the unrounded values.
func (a *Aggregator) Summarize(records []core.RecurringExpense) Summary {
	now := a.clock.Now()
	s := Summary{
		AsOf:         core.DateOf(now),
		Rows:         make([]Row, 0, len(records)),
		MonthlyTotal: MonthlyTotal(records),
	}
	for _, r := range records {
		days := DaysUntil(r.NextPayment, now)
		s.Rows = append(s.Rows, Row{
			RecurringExpense:  r,
			DaysUntil:         days,
			Urgency:           Classify(days),
			MonthlyEquivalent: MonthlyEquivalent(r).Round(2),
		})
		if r.Active {
			s.ActiveCount++
		}
	}
	return s
}

// Due returns the active rows whose countdown is within days, in input order.
func (s Summary) Due(days int) []Row {
	var due []Row
	for _, row := range s.Rows {
		if row.Active && row.DaysUntil <= days {
			due = append(due, row)
		}
	}
	return due
}
