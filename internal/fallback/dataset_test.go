package fallback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

func TestDefaultNormalizes(t *testing.T) {
	ds := Default()
	records, err := ds.RecurringExpenses()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, core.CategoryUtilities, records[3].Category)

	// 90000 + 1599 + 5000 + 12000 + 6500 + 7999
	assert.Equal(t, "123098.00", recurring.MonthlyTotal(records).StringFixed(2))
	assert.Equal(t, 4, ds.TeamMemberCount())
}

func TestExpensesBetween(t *testing.T) {
	ds := Default()
	june := ds.ExpensesBetween(core.NewDate(2023, 6, 1), core.NewDate(2023, 7, 1))
	assert.Len(t, june, 6)
	for _, e := range june {
		assert.Equal(t, 6, int(e.Date.Month()))
	}
	assert.Len(t, ds.ExpensesBetween(core.Date{}, core.Date{}), 8)
	assert.Len(t, ds.ExpensesBetween(core.Date{}, core.NewDate(2023, 6, 1)), 2)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"recurring": [{"id":"a","description":"Water","amount":"30","category":"Utilities","frequency":"Quarterly","nextPayment":"2024-01-01"}],
		"expenses": [{"id":"e","date":"2024-01-02","description":"Lunch","amount":"12.5","category":"Food"}],
		"teamMembers": []
	}`), 0o600))
	ds, err := Load(good)
	require.NoError(t, err)
	records, err := ds.RecurringExpenses()
	require.NoError(t, err)
	assert.True(t, records[0].Active)
	assert.Equal(t, "10.00", recurring.MonthlyTotal(records).StringFixed(2))
	assert.Equal(t, "2024-01-02", ds.Expenses[0].Date.String())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"recurring":[{"id":"a","amount":"lots","frequency":"Monthly","nextPayment":"2024-01-01"}]}`), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	ds, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Len(t, ds.Recurring, 6)
}
