// Package memory is an in-process ExpenseStore used by tests and by the
// memory backend. It mirrors the SQL repository's contract, including the
// unauthenticated condition for empty user ids.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

type Store struct {
	mu        sync.Mutex
	recurring []recurring.RemoteRecord
	expenses  map[string][]core.Expense
	team      map[string][]core.TeamMember
	now       func() time.Time
	// failWith, when set, is returned by every call.
	failWith error
}

func New() *Store {
	return &Store{
		expenses: make(map[string][]core.Expense),
		team:     make(map[string][]core.TeamMember),
		now:      time.Now,
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Seed stores raw rows as-is, for exercising normalization of bad data.
func (s *Store) Seed(rows ...recurring.RemoteRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring = append(s.recurring, rows...)
}

func (s *Store) guard(userID string) error {
	if s.failWith != nil {
		return s.failWith
	}
	if strings.TrimSpace(userID) == "" {
		return core.ErrUnauthenticated
	}
	return nil
}

func (s *Store) FetchRecurring(_ context.Context, userID string) ([]recurring.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(userID); err != nil {
		return nil, err
	}
	var out []recurring.RemoteRecord
	for _, r := range s.recurring {
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextPayment < out[j].NextPayment })
	return out, nil
}

func (s *Store) ListActiveRecurring(_ context.Context) ([]recurring.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []recurring.RemoteRecord
	for _, r := range s.recurring {
		if r.Active == nil || *r.Active {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextPayment < out[j].NextPayment })
	return out, nil
}

func (s *Store) InsertRecurring(_ context.Context, userID string, rec core.RecurringExpense) (recurring.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(userID); err != nil {
		return recurring.RemoteRecord{}, err
	}
	createdAt := s.now().UTC()
	category := string(rec.Category)
	active := rec.Active
	row := recurring.RemoteRecord{
		ID:          uuid.New().String(),
		UserID:      &userID,
		Description: rec.Description,
		Amount:      recurring.RawAmount(rec.Amount.String()),
		Category:    &category,
		Frequency:   string(rec.Frequency),
		NextPayment: rec.NextPayment.String(),
		Active:      &active,
		CreatedAt:   &createdAt,
	}
	s.recurring = append(s.recurring, row)
	return row, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string, from, to core.Date) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(userID); err != nil {
		return nil, err
	}
	var out []core.Expense
	for _, e := range s.expenses[userID] {
		if !from.IsZero() && e.Date.Before(from.Time) {
			continue
		}
		if !to.IsZero() && !e.Date.Before(to.Time) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, userID string, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(userID); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.New().String()
	s.expenses[userID] = append(s.expenses[userID], e)
	return e, nil
}

func (s *Store) CountTeamMembers(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(userID); err != nil {
		return 0, err
	}
	return len(s.team[userID]), nil
}

// ListTeamMembers returns the caller's team, longest-standing member first.
func (s *Store) ListTeamMembers(_ context.Context, userID string) ([]core.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(userID); err != nil {
		return nil, err
	}
	out := append([]core.TeamMember(nil), s.team[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt.Time)
	})
	return out, nil
}

func (s *Store) AddTeamMember(_ context.Context, userID string, m core.TeamMember) (core.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(userID); err != nil {
		return core.TeamMember{}, err
	}
	if strings.TrimSpace(m.Name) == "" {
		return core.TeamMember{}, fmt.Errorf("%w: name", core.ErrMissingField)
	}
	m.ID = uuid.New().String()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = core.DateOf(s.now())
	}
	s.team[userID] = append(s.team[userID], m)
	return m, nil
}

func (s *Store) Close() error { return nil }
