package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/metrics"
	"spendwise/internal/recurring"
)

// ReminderProcessorConfig holds configuration for the reminder processor
type ReminderProcessorConfig struct {
	// Interval is how often active recurring expenses are scanned (default: 1h)
	Interval time.Duration
}

func DefaultReminderProcessorConfig() ReminderProcessorConfig {
	return ReminderProcessorConfig{Interval: time.Hour}
}

// ReminderProcessor publishes a reminder for every active recurring expense
// whose next payment is urgent. Each payment is announced once per process.
type ReminderProcessor struct {
	store     ActiveRecurringLister
	publisher ReminderPublisher
	clock     core.Clock
	config    ReminderProcessorConfig
	metrics   *metrics.Metrics

	sentMu sync.Mutex
	sent   map[string]struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReminderProcessor(store ActiveRecurringLister, publisher ReminderPublisher, clock core.Clock, config ReminderProcessorConfig) *ReminderProcessor {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultReminderProcessorConfig().Interval
	}
	return &ReminderProcessor{
		store:     store,
		publisher: publisher,
		clock:     clock,
		config:    config,
		sent:      make(map[string]struct{}),
	}
}

func (p *ReminderProcessor) WithMetrics(m *metrics.Metrics) *ReminderProcessor {
	p.metrics = m
	return p
}

// Process scans once and returns how many reminders were published.
func (p *ReminderProcessor) Process(ctx context.Context) (int, error) {
	if p.store == nil || p.publisher == nil {
		return 0, fmt.Errorf("reminder processor not properly initialized")
	}

	rows, err := p.store.ListActiveRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurring expenses: %w", err)
	}

	now := p.clock.Now()
	published := 0
	urgent := make(map[string]struct{})
	defer p.forgetExcept(urgent)
	for _, row := range rows {
		rec, err := recurring.FromRemote(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed recurring expense", "record_id", row.ID, "error", err)
			p.metrics.RecordRejected(datasetRecurring, rejectCause(err))
			continue
		}
		if !rec.Active {
			continue
		}
		days := recurring.DaysUntil(rec.NextPayment, now)
		if recurring.Classify(days) != recurring.UrgencyUrgent {
			continue
		}

		key := rec.ID + "@" + rec.NextPayment.String()
		urgent[key] = struct{}{}
		if p.alreadySent(key) {
			p.metrics.RecordReminder("duplicate")
			continue
		}

		userID := ""
		if row.UserID != nil {
			userID = *row.UserID
		}
		if err := p.publisher.PublishReminder(ctx, userID, rec, days); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reminder",
				"record_id", rec.ID,
				"days_until", days,
				"error", err)
			p.metrics.RecordReminder("failed")
			continue
		}
		p.markSent(key)
		p.metrics.RecordReminder("published")
		published++

		slog.InfoContext(ctx, "Reminder published",
			"record_id", rec.ID,
			"description", rec.Description,
			"next_payment", rec.NextPayment.String(),
			"days_until", days)
	}

	slog.InfoContext(ctx, "Reminder scan complete",
		"published", published,
		"total_checked", len(rows))
	return published, nil
}

func (p *ReminderProcessor) alreadySent(key string) bool {
	p.sentMu.Lock()
	defer p.sentMu.Unlock()
	_, ok := p.sent[key]
	return ok
}

func (p *ReminderProcessor) markSent(key string) {
	p.sentMu.Lock()
	defer p.sentMu.Unlock()
	p.sent[key] = struct{}{}
}

// forgetExcept drops sent keys that are no longer urgent, e.g. because the
// payment moved to its next date or the expense was paused or deleted.
// Overdue payments stay urgent and keep their key.
func (p *ReminderProcessor) forgetExcept(urgent map[string]struct{}) {
	p.sentMu.Lock()
	defer p.sentMu.Unlock()
	for key := range p.sent {
		if _, ok := urgent[key]; !ok {
			delete(p.sent, key)
		}
	}
}

func (p *ReminderProcessor) sentCount() int {
	p.sentMu.Lock()
	defer p.sentMu.Unlock()
	return len(p.sent)
}

// Start begins the scan loop. Returns an error if already running.
func (p *ReminderProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reminder processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Reminder processor started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current scan to finish.
func (p *ReminderProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Reminder processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ReminderProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReminderProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Scan immediately on startup
	p.scan(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

func (p *ReminderProcessor) scan(ctx context.Context) {
	if _, err := p.Process(ctx); err != nil {
		slog.ErrorContext(ctx, "Reminder scan failed", "error", err)
	}
}
