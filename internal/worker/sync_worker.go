// Package worker mirrors record-created events into the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"spendwise/internal/amqp"
	"spendwise/internal/sheets"
)

// SyncWorker appends every created record to the Google Sheets mirror. It
// remembers what it has mirrored so a redelivered event is not appended twice.
type SyncWorker struct {
	sheets sheets.Mirror

	mu     sync.Mutex
	synced map[string]string
}

func NewSyncWorker(mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{
		sheets: mirror,
		synced: make(map[string]string),
	}
}

// HandleEvent implements amqp.Handler. A returned error requeues the event.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	switch event.Type {
	case amqp.EventRecurringCreated:
		rec := *event.Recurring
		return w.mirror(ctx, "recurring:"+rec.ID, func() (string, error) {
			return w.sheets.AppendRecurring(ctx, rec)
		}, "description", rec.Description, "amount", rec.Amount.StringFixed(2), "frequency", rec.Frequency)

	case amqp.EventExpenseCreated:
		e := *event.Expense
		return w.mirror(ctx, "expense:"+e.ID, func() (string, error) {
			return w.sheets.AppendExpense(ctx, e)
		}, "description", e.Description, "amount", e.Amount.StringFixed(2), "date", e.Date.String())

	case amqp.EventReminder:
		// Reminders are for notification consumers; the mirror only logs them.
		days := 0
		if event.DaysUntil != nil {
			days = *event.DaysUntil
		}
		slog.InfoContext(ctx, "Payment reminder",
			"user_id", event.UserID,
			"record_id", event.Recurring.ID,
			"description", event.Recurring.Description,
			"next_payment", event.Recurring.NextPayment.String(),
			"days_until", days)
		return nil

	default:
		return fmt.Errorf("unsupported event type %q", event.Type)
	}
}

func (w *SyncWorker) mirror(ctx context.Context, key string, appendRow func() (string, error), attrs ...any) error {
	w.mu.Lock()
	ref, done := w.synced[key]
	w.mu.Unlock()
	if done {
		slog.InfoContext(ctx, "Record already mirrored, skipping", "key", key, "sheets_ref", ref)
		return nil
	}

	ref, err := appendRow()
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	w.mu.Lock()
	w.synced[key] = ref
	w.mu.Unlock()

	slog.InfoContext(ctx, "Successfully synced record",
		append([]any{"key", key, "sheets_ref", ref}, attrs...)...)
	return nil
}
