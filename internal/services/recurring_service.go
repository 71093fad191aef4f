package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/fallback"
	"spendwise/internal/metrics"
	"spendwise/internal/recurring"
)

const datasetRecurring = "recurring"

// RecurringView is an aggregated recurring list plus where it came from.
type RecurringView struct {
	recurring.Summary
	Source    Source `json:"source"`
	Persisted bool   `json:"persisted"`
}

// NewRecurringInput is a user-submitted recurring expense.
type NewRecurringInput struct {
	Description string              `json:"description"`
	Amount      recurring.RawAmount `json:"amount"`
	Category    string              `json:"category"`
	Frequency   string              `json:"frequency"`
	NextPayment string              `json:"nextPayment"`
	Active      *bool               `json:"active,omitempty"`
}

// Record validates the input and converts it to a canonical record without an id.
func (in NewRecurringInput) Record() (core.RecurringExpense, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"description", in.Description},
		{"amount", string(in.Amount)},
		{"category", in.Category},
		{"frequency", in.Frequency},
		{"nextPayment", in.NextPayment},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return core.RecurringExpense{}, fmt.Errorf("%w: %s", core.ErrMissingField, strings.Join(missing, ", "))
	}

	amount, err := core.ParseUserAmount(string(in.Amount))
	if err != nil {
		return core.RecurringExpense{}, err
	}
	category, err := core.ParseCategory(in.Category)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	frequency, err := core.ParseFrequency(in.Frequency)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	next, err := core.ParseDate(in.NextPayment)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	rec := core.RecurringExpense{
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		Category:    category,
		Frequency:   frequency,
		NextPayment: next,
		Active:      active,
	}
	return rec, rec.Validate()
}

// RecurringService serves recurring expenses from the store, or from the
// fallback dataset when the caller is anonymous or the store is failing.
type RecurringService struct {
	store      RecurringStore
	events     EventPublisher
	fallback   *fallback.Dataset
	aggregator *recurring.Aggregator
	cache      cache.Cache[[]core.RecurringExpense]
	metrics    *metrics.Metrics
}

// NewRecurringService wires the service. events may be nil.
func NewRecurringService(store RecurringStore, events EventPublisher, ds *fallback.Dataset, clock core.Clock) *RecurringService {
	if ds == nil {
		ds = fallback.Default()
	}
	return &RecurringService{
		store:      store,
		events:     events,
		fallback:   ds,
		aggregator: recurring.NewAggregator(clock),
	}
}

func (s *RecurringService) WithCache(c cache.Cache[[]core.RecurringExpense]) *RecurringService {
	s.cache = c
	return s
}

func (s *RecurringService) WithMetrics(m *metrics.Metrics) *RecurringService {
	s.metrics = m
	return s
}

// List returns the caller's recurring expenses with countdowns and the
// monthly total. Exactly one source is used per call.
func (s *RecurringService) List(ctx context.Context, userID string) (RecurringView, error) {
	records, source, err := s.Records(ctx, userID)
	if err != nil {
		return RecurringView{}, err
	}
	view := RecurringView{
		Summary:   s.aggregator.Summarize(records),
		Source:    source,
		Persisted: source == SourceStore,
	}
	if source == SourceStore {
		total, _ := view.MonthlyTotal.Float64()
		s.metrics.SetMonthlyRecurring(total)
	}
	return view, nil
}

// Records loads canonical records without aggregating them.
func (s *RecurringService) Records(ctx context.Context, userID string) ([]core.RecurringExpense, Source, error) {
	records, err := s.fetch(ctx, userID)
	if err != nil {
		reason, ok := fallbackReason(err)
		if !ok {
			return nil, "", err
		}
		records, err = s.fallbackRecords(ctx, reason, err)
		return records, SourceFallback, err
	}
	return records, SourceStore, nil
}

// fetch reads the caller's records from the cache or the store. Malformed
// rows are skipped; store errors are returned as-is.
func (s *RecurringService) fetch(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	if userID != "" && s.cache != nil {
		if cached, ok := s.cache.Get(userID); ok {
			slog.DebugContext(ctx, "Recurring list served from cache", "user_id", userID, "count", len(cached))
			return cached, nil
		}
	}

	rows, err := s.store.FetchRecurring(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch recurring: %w", err)
	}

	records := make([]core.RecurringExpense, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		rec, err := recurring.FromRemote(row)
		if err == nil {
			if _, dup := seen[rec.ID]; dup {
				err = fmt.Errorf("%w: %s", core.ErrDuplicateID, rec.ID)
			}
		}
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed recurring expense",
				"user_id", userID,
				"index", i,
				"record_id", row.ID,
				"error", err)
			s.metrics.RecordRejected(datasetRecurring, rejectCause(err))
			continue
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}

	if s.cache != nil {
		s.cache.Set(userID, records)
	}
	return records, nil
}

func (s *RecurringService) fallbackRecords(ctx context.Context, reason string, cause error) ([]core.RecurringExpense, error) {
	logFallback(ctx, datasetRecurring, reason, cause)
	s.metrics.RecordFallback(datasetRecurring, reason)

	records, err := s.fallback.RecurringExpenses()
	if err != nil {
		return nil, fmt.Errorf("fallback recurring: %w", err)
	}
	return records, nil
}

// Create persists a recurring expense for an authenticated caller. For an
// anonymous caller the record is returned with a temporary id and nothing
// is stored. The bool reports whether the record was persisted.
func (s *RecurringService) Create(ctx context.Context, userID string, in NewRecurringInput) (core.RecurringExpense, bool, error) {
	rec, err := in.Record()
	if err != nil {
		return core.RecurringExpense{}, false, err
	}

	if userID == "" {
		return s.demoRecord(ctx, rec), false, nil
	}

	row, err := s.store.InsertRecurring(ctx, userID, rec)
	if errors.Is(err, core.ErrUnauthenticated) {
		return s.demoRecord(ctx, rec), false, nil
	}
	if err != nil {
		return core.RecurringExpense{}, false, fmt.Errorf("save recurring expense: %w", err)
	}

	saved, err := recurring.FromRemote(row)
	if err != nil {
		return core.RecurringExpense{}, false, fmt.Errorf("read back recurring expense: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(userID)
	}
	s.metrics.RecordCreated(datasetRecurring, true)

	if err := s.publishCreated(ctx, userID, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recurring.created",
			"record_id", saved.ID,
			"error", err)
		// Don't fail the request, the record is saved.
	}
	return saved, true, nil
}

func (s *RecurringService) demoRecord(ctx context.Context, rec core.RecurringExpense) core.RecurringExpense {
	rec.ID = "temp-" + uuid.NewString()
	slog.InfoContext(ctx, "Recurring expense accepted without persistence",
		"record_id", rec.ID,
		"description", rec.Description)
	s.metrics.RecordCreated(datasetRecurring, false)
	return rec
}

func (s *RecurringService) publishCreated(ctx context.Context, userID string, rec core.RecurringExpense) error {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping recurring.created")
		return nil
	}
	return s.events.PublishRecurringCreated(ctx, userID, rec)
}

func rejectCause(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, core.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, core.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, core.ErrMissingField):
		return "missing_field"
	default:
		return "other"
	}
}
