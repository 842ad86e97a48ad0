package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry                *prometheus.Registry
	RequestsTotal           *prometheus.CounterVec
	RequestDuration         *prometheus.HistogramVec
	OperatorsProcessedTotal prometheus.Counter
	LoadoutEntriesTotal     *prometheus.CounterVec
	ErrorsTotal             *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	operatorsProcessed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_operators_processed_total",
			Help: "Total number of operators normalized.",
		},
	)
	loadoutEntries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_loadout_entries_total",
			Help: "Loadout entries classified, by slot.",
		},
		[]string{"slot"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, operatorsProcessed, loadoutEntries, errorsTotal)

	return &Metrics{
		Registry:                registry,
		RequestsTotal:           requests,
		RequestDuration:         requestDuration,
		OperatorsProcessedTotal: operatorsProcessed,
		LoadoutEntriesTotal:     loadoutEntries,
		ErrorsTotal:             errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncOperators increments the processed operators counter.
func (m *Metrics) IncOperators() {
	if m == nil {
		return
	}
	m.OperatorsProcessedTotal.Inc()
}

// AddLoadoutEntries adds n classified entries for a slot.
func (m *Metrics) AddLoadoutEntries(slot string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.LoadoutEntriesTotal.WithLabelValues(slot).Add(float64(n))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
