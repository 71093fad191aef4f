package services

import (
	"context"
	"errors"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

// Ports for the store and event collaborators.
type (
	RecurringStore interface {
		FetchRecurring(ctx context.Context, userID string) ([]recurring.RemoteRecord, error)
		InsertRecurring(ctx context.Context, userID string, rec core.RecurringExpense) (recurring.RemoteRecord, error)
	}

	// ActiveRecurringLister scans across users. Only background workers use it.
	ActiveRecurringLister interface {
		ListActiveRecurring(ctx context.Context) ([]recurring.RemoteRecord, error)
	}

	ExpenseStore interface {
		ListExpenses(ctx context.Context, userID string, from, to core.Date) ([]core.Expense, error)
		InsertExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error)
	}

	TeamStore interface {
		CountTeamMembers(ctx context.Context, userID string) (int, error)
		ListTeamMembers(ctx context.Context, userID string) ([]core.TeamMember, error)
		AddTeamMember(ctx context.Context, userID string, m core.TeamMember) (core.TeamMember, error)
	}

	// Store is everything a backend provides.
	Store interface {
		RecurringStore
		ActiveRecurringLister
		ExpenseStore
		TeamStore
		Close() error
	}

	EventPublisher interface {
		PublishRecurringCreated(ctx context.Context, userID string, rec core.RecurringExpense) error
		PublishExpenseCreated(ctx context.Context, userID string, e core.Expense) error
	}

	ReminderPublisher interface {
		PublishReminder(ctx context.Context, userID string, rec core.RecurringExpense, daysUntil int) error
	}
)

// Source says where the data of a view came from.
type Source string

const (
	SourceStore    Source = "store"
	SourceFallback Source = "fallback"
)

// fallbackReason labels why a caller is served sample data. A cancelled
// request is not a store failure and is returned to the caller instead.
func fallbackReason(err error) (reason string, ok bool) {
	switch {
	case errors.Is(err, context.Canceled):
		return "", false
	case errors.Is(err, core.ErrUnauthenticated):
		return "unauthenticated", true
	case errors.Is(err, core.ErrTransport):
		return "transport", true
	default:
		return "store", true
	}
}
