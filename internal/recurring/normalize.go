package recurring

import (
	"encoding/json"
	"fmt"
	"strings"

	"spendwise/internal/core"
)

// RecordError reports the first record a normalization pass rejected.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (id %q): %v", e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// fields is the shape-independent view both mappers reduce to.
type fields struct {
	id, description string
	amount          RawAmount
	category        string
	frequency       string
	nextPayment     string
	active          *bool
}

func canonical(f fields) (core.RecurringExpense, error) {
	amount, err := core.ParseAmount(string(f.amount))
	if err != nil {
		return core.RecurringExpense{}, err
	}
	description := strings.TrimSpace(f.description)
	if description == "" {
		return core.RecurringExpense{}, fmt.Errorf("%w: description", core.ErrMissingField)
	}
	next, err := core.ParseDate(f.nextPayment)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("next payment: %w", err)
	}
	active := true
	if f.active != nil {
		active = *f.active
	}
	return core.RecurringExpense{
		ID:          f.id,
		Description: description,
		Amount:      amount,
		Category:    core.CategoryOrOther(f.category),
		Frequency:   core.CanonicalFrequency(strings.TrimSpace(f.frequency)),
		NextPayment: next,
		Active:      active,
	}, nil
}

// FromRemote maps a store row to the canonical record.
func FromRemote(r RemoteRecord) (core.RecurringExpense, error) {
	category := ""
	if r.Category != nil {
		category = *r.Category
	}
	return canonical(fields{
		id:          r.ID,
		description: r.Description,
		amount:      r.Amount,
		category:    category,
		frequency:   r.Frequency,
		nextPayment: r.NextPayment,
		active:      r.Active,
	})
}

// FromLocal maps a demo record to the canonical record.
func FromLocal(r LocalRecord) (core.RecurringExpense, error) {
	return canonical(fields{
		id:          r.ID,
		description: r.Description,
		amount:      r.Amount,
		category:    r.Category,
		frequency:   r.Frequency,
		nextPayment: r.NextPayment,
		active:      r.Active,
	})
}

// NormalizeRemote maps rows in order and stops at the first bad one.
func NormalizeRemote(rows []RemoteRecord) ([]core.RecurringExpense, error) {
	return normalizeAll(rows, func(r RemoteRecord) string { return r.ID }, FromRemote)
}

// NormalizeLocal maps demo records in order and stops at the first bad one.
func NormalizeLocal(rows []LocalRecord) ([]core.RecurringExpense, error) {
	return normalizeAll(rows, func(r LocalRecord) string { return r.ID }, FromLocal)
}

func normalizeAll[T any](rows []T, idOf func(T) string, mapper func(T) (core.RecurringExpense, error)) ([]core.RecurringExpense, error) {
	out := make([]core.RecurringExpense, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		id := idOf(row)
		if id != "" {
			if _, dup := seen[id]; dup {
				return nil, &RecordError{Index: i, ID: id, Err: core.ErrDuplicateID}
			}
			seen[id] = struct{}{}
		}
		rec, err := mapper(row)
		if err != nil {
			return nil, &RecordError{Index: i, ID: id, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Normalize decodes a JSON array in the given shape and maps every element.
func Normalize(kind SourceKind, raw []byte) ([]core.RecurringExpense, error) {
	switch kind {
	case SourceRemote:
		var rows []RemoteRecord
		if err := decodeRecords(raw, &rows); err != nil {
			return nil, err
		}
		return NormalizeRemote(rows)
	case SourceLocal:
		var rows []LocalRecord
		if err := decodeRecords(raw, &rows); err != nil {
			return nil, err
		}
		return NormalizeLocal(rows)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

func decodeRecords(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}
	return nil
}
