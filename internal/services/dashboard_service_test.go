package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/fallback"
	"spendwise/internal/storage/memory"
)

func newDashboard(t *testing.T, store *memory.Store) *DashboardService {
	t.Helper()
	rs, _ := newRecurringService(t, store, &fakePublisher{})
	return NewDashboardService(rs, store, store, fallback.Default()).WithMetrics(newMetrics(t))
}

func TestDashboardAnonymousUsesSampleData(t *testing.T) {
	svc := newDashboard(t, memory.New())

	summary, err := svc.Summary(context.Background(), "", testNow)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, summary.Source)
	assert.False(t, summary.Persisted)
	assert.Equal(t, 4, summary.TeamMembers)
	assert.Equal(t, "123098.00", summary.MonthlyRecurring.StringFixed(2))
	assert.Equal(t, 6, summary.ActiveRecurring)

	assert.Equal(t, 2023, summary.Month.Year)
	assert.Equal(t, "Jun", summary.Month.Label)
	assert.Equal(t, "120925.73", summary.Month.Total.StringFixed(2))

	require.Len(t, summary.Trends, 6)
	assert.Equal(t, "Jan", summary.Trends[0].Label)
	assert.Equal(t, "14350.00", summary.Trends[4].Total.StringFixed(2))

	require.Len(t, summary.Recent, 5)
	assert.Equal(t, "Grocery Store", summary.Recent[0].Description)

	var categories []core.Category
	for _, c := range summary.Categories {
		categories = append(categories, c.Category)
	}
	assert.Equal(t, []core.Category{
		core.CategoryFood, core.CategoryRent, core.CategoryUtilities,
		core.CategoryTransportation, core.CategoryEntertainment,
	}, categories)
	assert.Equal(t, "18049.99", summary.Categories[2].Total.StringFixed(2))
}

func TestDashboardFromStore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.Seed(
		row("r1", "u1", "30", "Monthly", "2024-06-12", true),
		row("r2", "u1", "120", "Yearly", "2024-09-01", true),
	)
	_, err := store.InsertExpense(ctx, "u1", core.Expense{Date: core.NewDate(2024, 6, 2), Description: "Bus", Amount: decimal.RequireFromString("2.50"), Category: core.CategoryTransportation})
	require.NoError(t, err)
	_, err = store.InsertExpense(ctx, "u1", core.Expense{Date: core.NewDate(2024, 3, 15), Description: "Shoes", Amount: decimal.RequireFromString("80"), Category: core.CategoryOther})
	require.NoError(t, err)
	_, err = store.AddTeamMember(ctx, "u1", core.TeamMember{Name: "Ana"})
	require.NoError(t, err)

	summary, err := newDashboard(t, store).Summary(ctx, "u1", testNow)
	require.NoError(t, err)

	assert.Equal(t, SourceStore, summary.Source)
	assert.True(t, summary.Persisted)
	assert.Equal(t, 1, summary.TeamMembers)
	assert.Equal(t, "40.00", summary.MonthlyRecurring.StringFixed(2))
	assert.Equal(t, "2.50", summary.Month.Total.StringFixed(2))
	require.Len(t, summary.Upcoming, 1)
	assert.Equal(t, "r1", summary.Upcoming[0].ID)

	require.Len(t, summary.Trends, 6)
	assert.Equal(t, 2024, summary.Trends[0].Year)
	assert.Equal(t, 1, summary.Trends[0].Month)
	assert.Equal(t, "80.00", summary.Trends[2].Total.StringFixed(2))
	assert.Len(t, summary.Recent, 2)
}

func TestDashboardStoreFailureFallsBackEntirely(t *testing.T) {
	store := memory.New()
	store.Seed(row("r1", "u1", "30", "Monthly", "2024-06-12", true))
	store.FailWith(fmt.Errorf("%w: dial tcp", core.ErrTransport))

	summary, err := newDashboard(t, store).Summary(context.Background(), "u1", testNow)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, summary.Source)
	assert.Equal(t, 4, summary.TeamMembers)
	assert.Equal(t, "123098.00", summary.MonthlyRecurring.StringFixed(2))
}

func TestTrends(t *testing.T) {
	expenses := []core.Expense{
		{Date: core.NewDate(2023, 12, 31), Amount: decimal.RequireFromString("10")},
		{Date: core.NewDate(2024, 1, 1), Amount: decimal.RequireFromString("1.255")},
		{Date: core.NewDate(2024, 2, 29), Amount: decimal.RequireFromString("4")},
		{Date: core.NewDate(2024, 2, 1), Amount: decimal.RequireFromString("6")},
		{Date: core.NewDate(2024, 3, 1), Amount: decimal.RequireFromString("99")},
	}

	trends := Trends(expenses, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), 3)

	require.Len(t, trends, 3)
	assert.Equal(t, "Dec", trends[0].Label)
	assert.Equal(t, 2023, trends[0].Year)
	assert.Equal(t, "10.00", trends[0].Total.StringFixed(2))
	assert.Equal(t, "1.26", trends[1].Total.StringFixed(2))
	assert.Equal(t, "10.00", trends[2].Total.StringFixed(2))
}

func TestRecentDoesNotMutateInput(t *testing.T) {
	expenses := []core.Expense{
		{ID: "old", Date: core.NewDate(2024, 1, 1)},
		{ID: "new", Date: core.NewDate(2024, 5, 1)},
	}
	got := Recent(expenses, 1)

	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", expenses[0].ID)
}
