package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendwise/internal/core"
)

type EventType string

const (
	EventRecurringCreated EventType = "recurring.created"
	EventExpenseCreated   EventType = "expense.created"
	EventReminder         EventType = "recurring.reminder"
)

// Event is the envelope of every message on the queue. Exactly one of
// Recurring or Expense is set, depending on Type.
type Event struct {
	Type      EventType              `json:"type"`
	UserID    string                 `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Recurring *core.RecurringExpense `json:"recurring,omitempty"`
	Expense   *core.Expense          `json:"expense,omitempty"`
	DaysUntil *int                   `json:"days_until,omitempty"`
}

func NewRecurringCreated(userID string, rec core.RecurringExpense) *Event {
	return &Event{Type: EventRecurringCreated, UserID: userID, Timestamp: time.Now().UTC(), Recurring: &rec}
}

func NewExpenseCreated(userID string, e core.Expense) *Event {
	return &Event{Type: EventExpenseCreated, UserID: userID, Timestamp: time.Now().UTC(), Expense: &e}
}

func NewReminder(userID string, rec core.RecurringExpense, daysUntil int) *Event {
	return &Event{Type: EventReminder, UserID: userID, Timestamp: time.Now().UTC(), Recurring: &rec, DaysUntil: &daysUntil}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and checks an envelope.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventRecurringCreated, EventReminder:
		if e.Recurring == nil {
			return nil, fmt.Errorf("%s event without recurring payload", e.Type)
		}
	case EventExpenseCreated:
		if e.Expense == nil {
			return nil, fmt.Errorf("%s event without expense payload", e.Type)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
