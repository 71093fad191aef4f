package recurring

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"spendwise/internal/core"
)

func rec(amount string, f core.Frequency, active bool) core.RecurringExpense {
	return core.RecurringExpense{
		Description: "bill",
		Amount:      decimal.RequireFromString(amount),
		Category:    core.CategoryOther,
		Frequency:   f,
		NextPayment: core.NewDate(2023, 7, 1),
		Active:      active,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestMonthlyEquivalent(t *testing.T) {
	cases := []struct {
		name      string
		amount    string
		frequency core.Frequency
		want      string
	}{
		{"daily", "10", core.Daily, "300"},
		{"weekly", "100.00", core.Weekly, "433.00"},
		{"bi-weekly", "100", core.BiWeekly, "217"},
		{"monthly", "90000.00", core.Monthly, "90000.00"},
		{"quarterly", "300", core.Quarterly, "100"},
		{"yearly", "12000.00", core.Yearly, "1000.00"},
		{"unrecognized counts once a month", "42.50", core.Frequency("Fortnightly"), "42.50"},
		{"zero amount", "0", core.Weekly, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertDecimal(t, tc.want, MonthlyEquivalent(rec(tc.amount, tc.frequency, true)))
		})
	}
}

func TestMonthlyEquivalentInactive(t *testing.T) {
	for _, f := range append(core.Frequencies(), "Fortnightly") {
		t.Run(string(f), func(t *testing.T) {
			assert.True(t, MonthlyEquivalent(rec("999.99", f, false)).IsZero())
		})
	}
}

func TestMonthlyTotal(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "0.00", MonthlyTotal(nil).StringFixed(2))
	})

	t.Run("inactive records do not count", func(t *testing.T) {
		records := []core.RecurringExpense{
			rec("90000", core.Monthly, true),
			rec("1599", core.Monthly, true),
			rec("5000", core.Monthly, false),
		}
		assert.Equal(t, "91599.00", MonthlyTotal(records).StringFixed(2))
	})

	t.Run("rounds once after summing", func(t *testing.T) {
		// Each third is 33.33 when rounded alone; the exact sum is 100.
		records := []core.RecurringExpense{
			rec("100", core.Quarterly, true),
			rec("100", core.Quarterly, true),
			rec("100", core.Quarterly, true),
		}
		assertDecimal(t, "100.00", MonthlyTotal(records))
	})

	t.Run("half up", func(t *testing.T) {
		// 0.15 * 4.33 = 0.6495; 0.005 * 30 = 0.15 -> 0.7995 -> 0.80
		records := []core.RecurringExpense{
			rec("0.15", core.Weekly, true),
			rec("0.005", core.Daily, true),
		}
		assert.Equal(t, "0.80", MonthlyTotal(records).StringFixed(2))
	})
}

func TestMonthlyTotalOrderIndependent(t *testing.T) {
	records := []core.RecurringExpense{
		rec("900", core.Monthly, true),
		rec("15.99", core.Monthly, true),
		rec("12.49", core.Weekly, true),
		rec("37.10", core.BiWeekly, true),
		rec("250", core.Quarterly, true),
		rec("119", core.Yearly, true),
		rec("3.33", core.Daily, true),
		rec("50", core.Monthly, false),
	}
	want := MonthlyTotal(records)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]core.RecurringExpense(nil), records...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.True(t, want.Equal(MonthlyTotal(shuffled)), "permutation %d", i)
	}
}

func TestCadenceFor(t *testing.T) {
	assert.IsType(t, Divisor{}, CadenceFor(core.Yearly))
	assert.IsType(t, Multiplier{}, CadenceFor(core.Weekly))
	assert.Equal(t, CadenceFor(core.Monthly), CadenceFor("Hourly"))
}
