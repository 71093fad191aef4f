package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

func TestRecurringSortedByNextPayment(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, d := range []core.Date{core.NewDate(2023, 7, 1), core.NewDate(2023, 6, 15)} {
		_, err := s.InsertRecurring(ctx, "u1", core.RecurringExpense{
			Description: "bill", Amount: decimal.NewFromInt(10), Category: core.CategoryOther,
			Frequency: core.Monthly, NextPayment: d, Active: true,
		})
		require.NoError(t, err)
	}

	rows, err := s.FetchRecurring(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2023-06-15", rows[0].NextPayment)

	none, err := s.FetchRecurring(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGuards(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.FetchRecurring(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	boom := errors.New("boom")
	s.FailWith(boom)
	_, err = s.FetchRecurring(ctx, "u1")
	assert.ErrorIs(t, err, boom)
	_, err = s.ListActiveRecurring(ctx)
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	_, err = s.CountTeamMembers(ctx, "u1")
	assert.NoError(t, err)
}

func TestSeedAndActive(t *testing.T) {
	inactive := false
	u := "u1"
	s := New()
	s.Seed(
		recurring.RemoteRecord{ID: "a", UserID: &u, Amount: "5", Frequency: "Monthly", NextPayment: "2023-06-20"},
		recurring.RemoteRecord{ID: "b", UserID: &u, Amount: "5", Frequency: "Monthly", NextPayment: "2023-06-10", Active: &inactive},
	)
	active, err := s.ListActiveRecurring(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)
}

func TestExpensesAndTeam(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, d := range []core.Date{core.NewDate(2023, 5, 30), core.NewDate(2023, 6, 2), core.NewDate(2023, 6, 20)} {
		_, err := s.InsertExpense(ctx, "u1", core.Expense{Date: d, Description: "x", Amount: decimal.NewFromInt(1), Category: core.CategoryFood})
		require.NoError(t, err)
	}
	june, err := s.ListExpenses(ctx, "u1", core.NewDate(2023, 6, 1), core.NewDate(2023, 7, 1))
	require.NoError(t, err)
	require.Len(t, june, 2)
	assert.Equal(t, "2023-06-20", june[0].Date.String())

	_, err = s.AddTeamMember(ctx, "u1", core.TeamMember{Name: "Jane"})
	require.NoError(t, err)
	_, err = s.AddTeamMember(ctx, "u1", core.TeamMember{Name: "John", JoinedAt: core.NewDate(2023, 1, 15)})
	require.NoError(t, err)
	n, err := s.CountTeamMembers(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	team, err := s.ListTeamMembers(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, team, 2)
	assert.Equal(t, "John", team[0].Name)

	_, err = s.ListTeamMembers(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}
