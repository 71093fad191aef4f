// Package fallback holds the sample data served to callers that have no
// usable store: unauthenticated visitors, or anyone while the store is down.
package fallback

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

// Dataset is the injectable sample set. Recurring records stay in their raw
// demo shape and are normalized on every read like store rows are.
type Dataset struct {
	Recurring   []recurring.LocalRecord `json:"recurring"`
	Expenses    []core.Expense          `json:"expenses"`
	TeamMembers []core.TeamMember       `json:"teamMembers"`
}

// Load reads a dataset from a JSON file and checks that it normalizes.
func Load(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("parse fallback dataset %s: %w", path, err)
	}
	if _, err := ds.RecurringExpenses(); err != nil {
		return nil, fmt.Errorf("fallback dataset %s: %w", path, err)
	}
	return &ds, nil
}

// LoadOrDefault loads path when set and the built-in set otherwise.
func LoadOrDefault(path string) (*Dataset, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (d *Dataset) RecurringExpenses() ([]core.RecurringExpense, error) {
	return recurring.NormalizeLocal(d.Recurring)
}

// ExpensesBetween returns sample expenses dated in [from, to). A zero bound is open.
func (d *Dataset) ExpensesBetween(from, to core.Date) []core.Expense {
	var out []core.Expense
	for _, e := range d.Expenses {
		if !from.IsZero() && e.Date.Before(from.Time) {
			continue
		}
		if !to.IsZero() && !e.Date.Before(to.Time) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (d *Dataset) TeamMemberCount() int {
	return len(d.TeamMembers)
}

func boolPtr(b bool) *bool { return &b }

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Default is the built-in sample set shown on the demo dashboard.
func Default() *Dataset {
	return &Dataset{
		Recurring: []recurring.LocalRecord{
			{ID: "1", Description: "Rent", Amount: "90000.00", Category: "Rent", Frequency: "Monthly", NextPayment: "2023-07-01", Active: boolPtr(true)},
			{ID: "2", Description: "Netflix Subscription", Amount: "1599.00", Category: "Entertainment", Frequency: "Monthly", NextPayment: "2023-06-15", Active: boolPtr(true)},
			{ID: "3", Description: "Gym Membership", Amount: "5000.00", Category: "Entertainment", Frequency: "Monthly", NextPayment: "2023-06-20", Active: boolPtr(true)},
			{ID: "4", Description: "Electric Bill", Amount: "12000.00", Category: "Utilities", Frequency: "Monthly", NextPayment: "2023-06-25", Active: boolPtr(true)},
			{ID: "5", Description: "Phone Bill", Amount: "6500.00", Category: "Utilities", Frequency: "Monthly", NextPayment: "2023-06-18", Active: boolPtr(true)},
			{ID: "6", Description: "Internet Service", Amount: "7999.00", Category: "Utilities", Frequency: "Monthly", NextPayment: "2023-06-22", Active: boolPtr(true)},
		},
		Expenses: []core.Expense{
			{ID: "1", Date: core.NewDate(2023, 6, 10), Description: "Grocery Store", Amount: amount("7499.99"), Category: core.CategoryFood, AddedBy: "John Doe"},
			{ID: "2", Date: core.NewDate(2023, 6, 8), Description: "Rent Payment", Amount: amount("90000.00"), Category: core.CategoryRent, AddedBy: "Jane Smith"},
			{ID: "3", Date: core.NewDate(2023, 6, 7), Description: "Internet Bill", Amount: amount("5999.99"), Category: core.CategoryUtilities, AddedBy: "John Doe"},
			{ID: "4", Date: core.NewDate(2023, 6, 5), Description: "Gasoline", Amount: amount("3575.75"), Category: core.CategoryTransportation, AddedBy: "John Doe"},
			{ID: "5", Date: core.NewDate(2023, 6, 3), Description: "Movie Tickets", Amount: amount("1800.00"), Category: core.CategoryEntertainment, AddedBy: "Jane Smith"},
			{ID: "6", Date: core.NewDate(2023, 6, 1), Description: "Electricity Bill", Amount: amount("12050.00"), Category: core.CategoryUtilities, AddedBy: "John Doe"},
			{ID: "7", Date: core.NewDate(2023, 5, 29), Description: "Phone Bill", Amount: amount("6500.00"), Category: core.CategoryUtilities, AddedBy: "Jane Smith"},
			{ID: "8", Date: core.NewDate(2023, 5, 28), Description: "Restaurant Dinner", Amount: amount("7850.00"), Category: core.CategoryFood, AddedBy: "John Doe"},
		},
		TeamMembers: []core.TeamMember{
			{ID: "1", Name: "John Doe", Role: core.RoleAdmin, JoinedAt: core.NewDate(2023, 1, 15)},
			{ID: "2", Name: "Jane Smith", Role: core.RoleMember, JoinedAt: core.NewDate(2023, 1, 20)},
			{ID: "3", Name: "Alex Johnson", Role: core.RoleMember, JoinedAt: core.NewDate(2023, 2, 5)},
			{ID: "4", Name: "Maria Garcia", Role: core.RoleMember, JoinedAt: core.NewDate(2023, 3, 10)},
		},
	}
}
