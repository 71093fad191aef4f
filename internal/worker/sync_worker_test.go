package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
)

type fakeMirror struct {
	recurring []core.RecurringExpense
	expenses  []core.Expense
	err       error
}

func (m *fakeMirror) AppendRecurring(_ context.Context, rec core.RecurringExpense) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.recurring = append(m.recurring, rec)
	return "Recurring!A2:E2", nil
}

func (m *fakeMirror) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.expenses = append(m.expenses, e)
	return "2024 Spendwise!A2:E2", nil
}

var rent = core.RecurringExpense{
	ID:          "r1",
	Description: "Rent",
	Amount:      decimal.RequireFromString("900"),
	Category:    core.CategoryRent,
	Frequency:   core.Monthly,
	NextPayment: core.NewDate(2024, 7, 1),
	Active:      true,
}

func TestHandleRecurringCreatedIsIdempotent(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewSyncWorker(mirror)
	event := amqp.NewRecurringCreated("u1", rent)

	require.NoError(t, w.HandleEvent(context.Background(), event))
	require.NoError(t, w.HandleEvent(context.Background(), event))

	require.Len(t, mirror.recurring, 1)
	assert.Equal(t, "r1", mirror.recurring[0].ID)
}

func TestHandleExpenseCreated(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewSyncWorker(mirror)

	err := w.HandleEvent(context.Background(), amqp.NewExpenseCreated("u1", core.Expense{
		ID:          "e1",
		Date:        core.NewDate(2024, 6, 3),
		Description: "Groceries",
		Amount:      decimal.RequireFromString("42.10"),
		Category:    core.CategoryFood,
	}))
	require.NoError(t, err)
	assert.Len(t, mirror.expenses, 1)
	assert.Empty(t, mirror.recurring)
}

func TestHandleEventAppendFailureRequeues(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("quota exceeded")}
	w := NewSyncWorker(mirror)
	event := amqp.NewRecurringCreated("u1", rent)

	err := w.HandleEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	// Not remembered, so the retry appends.
	mirror.err = nil
	require.NoError(t, w.HandleEvent(context.Background(), event))
	assert.Len(t, mirror.recurring, 1)
}

func TestHandleReminderDoesNotMirror(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewSyncWorker(mirror)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewReminder("u1", rent, 2)))
	assert.Empty(t, mirror.recurring)
	assert.Empty(t, mirror.expenses)
}

func TestHandleUnknownEvent(t *testing.T) {
	w := NewSyncWorker(&fakeMirror{})
	assert.Error(t, w.HandleEvent(context.Background(), &amqp.Event{Type: "expense.deleted"}))
}
