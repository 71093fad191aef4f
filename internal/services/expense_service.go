package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/fallback"
	"spendwise/internal/metrics"
	"spendwise/internal/recurring"
)

const (
	datasetExpenses = "expenses"

	// demoAddedBy marks expenses accepted from anonymous callers.
	demoAddedBy = "You (Demo)"
	exportDate  = "Jan 2, 2006"
)

// ExpenseView is one month of expenses plus where they came from.
type ExpenseView struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Expenses  []core.Expense  `json:"expenses"`
	Total     decimal.Decimal `json:"total"`
	Source    Source          `json:"source"`
	Persisted bool            `json:"persisted"`
}

// NewExpenseInput is a user-submitted one-off expense. Date defaults to today.
type NewExpenseInput struct {
	Date        string              `json:"date"`
	Description string              `json:"description"`
	Amount      recurring.RawAmount `json:"amount"`
	Category    string              `json:"category"`
	AddedBy     string              `json:"addedBy"`
}

func (in NewExpenseInput) expense(today core.Date) (core.Expense, error) {
	var missing []string
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(string(in.Amount)) == "" {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(in.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrMissingField, strings.Join(missing, ", "))
	}

	e := core.Expense{
		Date:        today,
		Description: strings.TrimSpace(in.Description),
		AddedBy:     strings.TrimSpace(in.AddedBy),
	}
	var err error
	if strings.TrimSpace(in.Date) != "" {
		if e.Date, err = core.ParseDate(in.Date); err != nil {
			return core.Expense{}, err
		}
	}
	if e.Amount, err = core.ParseUserAmount(string(in.Amount)); err != nil {
		return core.Expense{}, err
	}
	if e.Category, err = core.ParseCategory(in.Category); err != nil {
		return core.Expense{}, err
	}
	return e, e.Validate()
}

// ExpenseService lists, records and exports one-off expenses.
type ExpenseService struct {
	store    ExpenseStore
	events   EventPublisher
	fallback *fallback.Dataset
	clock    core.Clock
	metrics  *metrics.Metrics
}

func NewExpenseService(store ExpenseStore, events EventPublisher, ds *fallback.Dataset, clock core.Clock) *ExpenseService {
	if ds == nil {
		ds = fallback.Default()
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &ExpenseService{
		store:    store,
		events:   events,
		fallback: ds,
		clock:    clock,
	}
}

func (s *ExpenseService) WithMetrics(m *metrics.Metrics) *ExpenseService {
	s.metrics = m
	return s
}

// ListMonth returns the caller's expenses for one calendar month, newest
// first. Sample expenses are not filtered by month: they belong to a fixed
// demo period.
func (s *ExpenseService) ListMonth(ctx context.Context, userID string, year, month int) (ExpenseView, error) {
	if month < 1 || month > 12 {
		return ExpenseView{}, fmt.Errorf("%w: month %d", core.ErrInvalidDate, month)
	}
	from := core.NewDate(year, month, 1)
	to := core.DateOf(from.AddDate(0, 1, 0))

	view := ExpenseView{Year: year, Month: month}
	expenses, err := s.store.ListExpenses(ctx, userID, from, to)
	if err != nil {
		reason, ok := fallbackReason(err)
		if !ok {
			return ExpenseView{}, fmt.Errorf("list expenses: %w", err)
		}
		logFallback(ctx, datasetExpenses, reason, err)
		s.metrics.RecordFallback(datasetExpenses, reason)
		expenses = s.fallback.ExpensesBetween(core.Date{}, core.Date{})
		view.Source = SourceFallback
	} else {
		view.Source = SourceStore
		view.Persisted = true
	}

	if expenses == nil {
		expenses = []core.Expense{}
	}
	view.Expenses = expenses
	view.Total = SumExpenses(expenses)
	return view, nil
}

// Create records an expense. Anonymous callers get a demo record back
// that is not stored.
func (s *ExpenseService) Create(ctx context.Context, userID string, in NewExpenseInput) (core.Expense, bool, error) {
	e, err := in.expense(core.DateOf(s.clock.Now()))
	if err != nil {
		return core.Expense{}, false, err
	}

	if userID != "" {
		saved, err := s.store.InsertExpense(ctx, userID, e)
		switch {
		case err == nil:
			s.metrics.RecordCreated(datasetExpenses, true)
			if err := s.publishCreated(ctx, userID, saved); err != nil {
				slog.ErrorContext(ctx, "Failed to publish expense.created",
					"record_id", saved.ID,
					"error", err)
			}
			return saved, true, nil
		case !errors.Is(err, core.ErrUnauthenticated):
			return core.Expense{}, false, fmt.Errorf("save expense: %w", err)
		}
	}

	e.ID = "temp-" + uuid.NewString()
	e.AddedBy = demoAddedBy
	s.metrics.RecordCreated(datasetExpenses, false)
	slog.InfoContext(ctx, "Expense accepted without persistence",
		"record_id", e.ID,
		"description", e.Description)
	return e, false, nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, userID string, e core.Expense) error {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping expense.created")
		return nil
	}
	return s.events.PublishExpenseCreated(ctx, userID, e)
}

// ExportCSV writes expenses as CSV: Date, Description, Category, Added By, Amount.
func (s *ExpenseService) ExportCSV(w io.Writer, expenses []core.Expense) error {
	return WriteExpensesCSV(w, expenses)
}

func WriteExpensesCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Description", "Category", "Added By", "Amount"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		addedBy := e.AddedBy
		if addedBy == "" {
			addedBy = "You"
		}
		if err := cw.Write([]string{
			e.Date.Format(exportDate),
			e.Description,
			string(e.Category),
			addedBy,
			e.Amount.StringFixed(2),
		}); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export taken on day.
func ExportFilename(day time.Time) string {
	return fmt.Sprintf("expenses_%s.csv", day.Format(core.DateLayout))
}

func SumExpenses(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total.Round(2)
}

func logFallback(ctx context.Context, dataset, reason string, cause error) {
	if reason == "unauthenticated" {
		slog.InfoContext(ctx, "Serving sample data", "dataset", dataset, "reason", reason)
		return
	}
	slog.WarnContext(ctx, "Store unavailable, serving sample data",
		"dataset", dataset,
		"reason", reason,
		"error", cause)
}
