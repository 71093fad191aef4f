package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/core"
	"spendwise/internal/fallback"
	"spendwise/internal/metrics"
	"spendwise/internal/recurring"
)

const (
	datasetDashboard = "dashboard"

	trendMonths    = 6
	recentExpenses = 5
	upcomingDays   = 7
)

type CategoryTotal struct {
	Category core.Category   `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// DashboardSummary is the landing page. Every figure comes from the same
// source: the store, or the sample dataset, never a mix.
type DashboardSummary struct {
	AsOf             core.Date         `json:"asOf"`
	Month            core.MonthTrend   `json:"month"`
	MonthlyRecurring decimal.Decimal   `json:"monthlyRecurring"`
	ActiveRecurring  int               `json:"activeRecurring"`
	Upcoming         []recurring.Row   `json:"upcoming"`
	TeamMembers      int               `json:"teamMembers"`
	Categories       []CategoryTotal   `json:"categories"`
	Trends           []core.MonthTrend `json:"trends"`
	Recent           []core.Expense    `json:"recent"`
	Source           Source            `json:"source"`
	Persisted        bool              `json:"persisted"`
}

type DashboardService struct {
	recurring *RecurringService
	expenses  ExpenseStore
	team      TeamStore
	fallback  *fallback.Dataset
	metrics   *metrics.Metrics
}

func NewDashboardService(rs *RecurringService, expenses ExpenseStore, team TeamStore, ds *fallback.Dataset) *DashboardService {
	if ds == nil {
		ds = fallback.Default()
	}
	return &DashboardService{
		recurring: rs,
		expenses:  expenses,
		team:      team,
		fallback:  ds,
	}
}

func (s *DashboardService) WithMetrics(m *metrics.Metrics) *DashboardService {
	s.metrics = m
	return s
}

// Summary fetches the caller's expenses, recurring list and team size
// concurrently. If any fetch fails the whole summary is built from the
// sample dataset.
func (s *DashboardService) Summary(ctx context.Context, userID string, now time.Time) (DashboardSummary, error) {
	start := monthStart(now).AddDate(0, -(trendMonths - 1), 0)
	end := monthStart(now).AddDate(0, 1, 0)

	var (
		expenses []core.Expense
		records  []core.RecurringExpense
		members  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.ListExpenses(gctx, userID, core.DateOf(start), core.DateOf(end))
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = s.recurring.fetch(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.team.CountTeamMembers(gctx, userID)
		if err != nil {
			return fmt.Errorf("count team members: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		reason, ok := fallbackReason(err)
		if !ok || ctx.Err() != nil {
			return DashboardSummary{}, err
		}
		logFallback(ctx, datasetDashboard, reason, err)
		s.metrics.RecordFallback(datasetDashboard, reason)
		return s.sample(now)
	}

	summary := s.build(now, expenses, records, members)
	summary.Source = SourceStore
	summary.Persisted = true
	slog.DebugContext(ctx, "Dashboard built",
		"user_id", userID,
		"expenses", len(expenses),
		"recurring", len(records),
		"team_members", members)
	return summary, nil
}

// sample builds the summary from the fallback dataset. Its expenses belong
// to a fixed demo period, so the month and trend window end at the newest
// sample expense instead of at now.
func (s *DashboardService) sample(now time.Time) (DashboardSummary, error) {
	records, err := s.fallback.RecurringExpenses()
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("fallback recurring: %w", err)
	}
	expenses := s.fallback.ExpensesBetween(core.Date{}, core.Date{})
	ref := now
	if latest, ok := latestExpense(expenses); ok {
		ref = latest
	}

	summary := s.build(ref, expenses, records, s.fallback.TeamMemberCount())
	summary.Source = SourceFallback
	return summary, nil
}

func (s *DashboardService) build(ref time.Time, expenses []core.Expense, records []core.RecurringExpense, members int) DashboardSummary {
	recurringSummary := s.recurring.aggregator.Summarize(records)
	trends := Trends(expenses, ref, trendMonths)

	var monthExpenses []core.Expense
	thisMonth := core.DateOf(monthStart(ref))
	for _, e := range expenses {
		if !e.Date.Before(thisMonth.Time) && e.Date.Before(thisMonth.AddDate(0, 1, 0)) {
			monthExpenses = append(monthExpenses, e)
		}
	}

	upcoming := recurringSummary.Due(upcomingDays)
	if upcoming == nil {
		upcoming = []recurring.Row{}
	}
	return DashboardSummary{
		AsOf:             recurringSummary.AsOf,
		Month:            trends[len(trends)-1],
		MonthlyRecurring: recurringSummary.MonthlyTotal,
		ActiveRecurring:  recurringSummary.ActiveCount,
		Upcoming:         upcoming,
		TeamMembers:      members,
		Categories:       CategoryTotals(monthExpenses),
		Trends:           trends,
		Recent:           Recent(expenses, recentExpenses),
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func latestExpense(expenses []core.Expense) (time.Time, bool) {
	var latest time.Time
	for _, e := range expenses {
		if e.Date.After(latest) {
			latest = e.Date.Time
		}
	}
	return latest, !latest.IsZero()
}

// Trends buckets expense totals into the n calendar months ending with the
// month of ref, oldest first. Months without expenses total zero.
func Trends(expenses []core.Expense, ref time.Time, n int) []core.MonthTrend {
	if n < 1 {
		n = 1
	}
	first := monthStart(ref).AddDate(0, -(n - 1), 0)
	trends := make([]core.MonthTrend, n)
	for i := range trends {
		m := first.AddDate(0, i, 0)
		trends[i] = core.MonthTrend{
			Year:  m.Year(),
			Month: int(m.Month()),
			Label: m.Format("Jan"),
			Total: decimal.Zero,
		}
	}
	for _, e := range expenses {
		i := (e.Date.Year()-first.Year())*12 + int(e.Date.Month()) - int(first.Month())
		if i < 0 || i >= n {
			continue
		}
		trends[i].Total = trends[i].Total.Add(e.Amount)
	}
	for i := range trends {
		trends[i].Total = trends[i].Total.Round(2)
	}
	return trends
}

// CategoryTotals sums expenses per category in category order, skipping
// categories with no spend.
func CategoryTotals(expenses []core.Expense) []CategoryTotal {
	sums := make(map[core.Category]decimal.Decimal)
	for _, e := range expenses {
		c := core.CategoryOrOther(string(e.Category))
		sums[c] = sums[c].Add(e.Amount)
	}
	out := []CategoryTotal{}
	for _, c := range core.Categories() {
		if total, ok := sums[c]; ok {
			out = append(out, CategoryTotal{Category: c, Total: total.Round(2)})
		}
	}
	return out
}

// Recent returns up to n expenses, newest first.
func Recent(expenses []core.Expense, n int) []core.Expense {
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
