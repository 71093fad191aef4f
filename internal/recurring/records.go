// Package recurring turns recurring-expense records from either source shape
// into canonical records and derives due-date countdowns and monthly totals
// from them. Everything here is pure; callers do the I/O.
package recurring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// SourceKind tags which shape a raw payload is in.
type SourceKind string

const (
	// SourceRemote is the store's snake_case shape with nullable category and active.
	SourceRemote SourceKind = "remote"
	// SourceLocal is the camelCase demo shape.
	SourceLocal SourceKind = "local"
)

// ParseSourceKind maps a flag value to a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(s) {
	case SourceRemote, SourceLocal:
		return SourceKind(s), nil
	}
	return "", fmt.Errorf("unknown source kind %q: must be %q or %q", s, SourceRemote, SourceLocal)
}

// RawAmount holds an amount exactly as it arrived, whether the payload
// carried a JSON number or a JSON string.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: amount is neither a number nor a string: %s", core.ErrInvalidAmount, b)
		}
		*a = RawAmount(n.String())
	}
	return nil
}

func (a RawAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// RemoteRecord is a row of the recurring_expenses table.
type RemoteRecord struct {
	ID          string     `json:"id"`
	UserID      *string    `json:"user_id,omitempty"`
	Description string     `json:"description"`
	Amount      RawAmount  `json:"amount"`
	Category    *string    `json:"category"`
	Frequency   string     `json:"frequency"`
	NextPayment string     `json:"next_payment"`
	Active      *bool      `json:"active"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// LocalRecord is the demo dataset shape.
type LocalRecord struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      RawAmount `json:"amount"`
	Category    string    `json:"category"`
	Frequency   string    `json:"frequency"`
	NextPayment string    `json:"nextPayment"`
	Active      *bool     `json:"active,omitempty"`
}
