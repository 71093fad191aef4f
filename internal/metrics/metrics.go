// Package metrics provides the Prometheus collectors of the API and workers.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	FallbackServed   *prometheus.CounterVec   // by dataset and reason
	RecordsRejected  *prometheus.CounterVec   // by dataset and cause
	RecordsCreated   *prometheus.CounterVec   // by dataset and whether persisted
	RemindersSent    *prometheus.CounterVec   // by outcome
	HTTPRequests     *prometheus.CounterVec   // by route, method, status
	HTTPDuration     *prometheus.HistogramVec // by route
	MonthlyRecurring prometheus.Gauge         // last computed monthly total, in currency units

	registry *prometheus.Registry
}

// New creates the collectors and registers them on registry. A nil registry
// gets a fresh one with the Go and process collectors.
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := &Metrics{registry: registry}

	m.FallbackServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendwise_fallback_served_total",
		Help: "Responses served from the sample dataset instead of the store",
	}, []string{"dataset", "reason"}) // reason: unauthenticated, transport

	m.RecordsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendwise_records_rejected_total",
		Help: "Stored records skipped because they failed normalization",
	}, []string{"dataset", "cause"})

	m.RecordsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendwise_records_created_total",
		Help: "Records submitted by users",
	}, []string{"dataset", "persisted"})

	m.RemindersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendwise_reminders_total",
		Help: "Payment reminders handled by the reminder worker",
	}, []string{"outcome"}) // outcome: published, skipped, error

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendwise_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spendwise_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route"})

	m.MonthlyRecurring = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spendwise_monthly_recurring_total",
		Help: "Monthly recurring total of the most recent summary",
	})

	for _, c := range []prometheus.Collector{
		m.FallbackServed, m.RecordsRejected, m.RecordsCreated, m.RemindersSent,
		m.HTTPRequests, m.HTTPDuration, m.MonthlyRecurring,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordFallback(dataset, reason string) {
	if m == nil {
		return
	}
	m.FallbackServed.WithLabelValues(dataset, reason).Inc()
}

func (m *Metrics) RecordRejected(dataset, cause string) {
	if m == nil {
		return
	}
	m.RecordsRejected.WithLabelValues(dataset, cause).Inc()
}

func (m *Metrics) RecordCreated(dataset string, persisted bool) {
	if m == nil {
		return
	}
	m.RecordsCreated.WithLabelValues(dataset, strconv.FormatBool(persisted)).Inc()
}

func (m *Metrics) RecordReminder(outcome string) {
	if m == nil {
		return
	}
	m.RemindersSent.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// WatchCache exports hit, miss and size readings for a named cache. The
// readings are taken from stats at scrape time.
func (m *Metrics) WatchCache(name string, stats func() (hits, misses uint64, size int)) error {
	if m == nil {
		return nil
	}
	labels := prometheus.Labels{"cache": name}
	collectorsFor := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "spendwise_cache_hits_total",
			Help:        "Cache lookups answered from memory",
			ConstLabels: labels,
		}, func() float64 { h, _, _ := stats(); return float64(h) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "spendwise_cache_misses_total",
			Help:        "Cache lookups that went to the store",
			ConstLabels: labels,
		}, func() float64 { _, mi, _ := stats(); return float64(mi) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "spendwise_cache_entries",
			Help:        "Entries currently held by the cache",
			ConstLabels: labels,
		}, func() float64 { _, _, n := stats(); return float64(n) }),
	}
	for _, c := range collectorsFor {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register cache metrics: %w", err)
		}
	}
	return nil
}

func (m *Metrics) SetMonthlyRecurring(total float64) {
	if m == nil {
		return
	}
	m.MonthlyRecurring.Set(total)
}
