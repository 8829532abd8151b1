package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// MemoriesAdded counts stored memories by outcome (added, updated,
	// deleted, skipped).
	MemoriesAdded *prometheus.CounterVec

	// ExtractionFacts counts extracted facts by outcome (kept,
	// truism_discarded).
	ExtractionFacts *prometheus.CounterVec

	// IntentExecutions counts scheduled intent runs by status.
	IntentExecutions *prometheus.CounterVec

	// IntentsDue tracks how many intents each scheduler tick claimed.
	IntentsDue prometheus.Histogram

	// SearchCache counts cache lookups by result (hit, miss).
	SearchCache *prometheus.CounterVec

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes request latency by method and path.
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		MemoriesAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenticmem_memories_total",
			Help: "Memory write operations by outcome.",
		}, []string{"outcome"}),
		ExtractionFacts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenticmem_extraction_facts_total",
			Help: "Extracted facts by outcome.",
		}, []string{"outcome"}),
		IntentExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenticmem_intent_executions_total",
			Help: "Scheduled intent executions by status.",
		}, []string{"status"}),
		IntentsDue: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agenticmem_intents_claimed_per_tick",
			Help:    "Intents claimed per scheduler tick.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		SearchCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenticmem_search_cache_total",
			Help: "Search cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenticmem_http_requests_total",
			Help: "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agenticmem_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
