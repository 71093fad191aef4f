// Package sheets declares the spreadsheet mirror used by the sync worker.
package sheets

import (
	"context"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

// Ports for outbound adapters.
type (
	RecurringWriter interface {
		AppendRecurring(ctx context.Context, rec core.RecurringExpense) (rowRef string, err error)
	}

	ExpenseWriter interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// RecurringReader reads mirrored recurring rows back in their raw shape.
	RecurringReader interface {
		ReadRecurring(ctx context.Context) ([]recurring.LocalRecord, error)
	}

	Mirror interface {
		RecurringWriter
		ExpenseWriter
	}
)
