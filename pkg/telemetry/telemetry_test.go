package telemetry_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/telemetry"
)

func TestNewLoggerDefaults(t *testing.T) {
	logger, err := telemetry.NewLogger(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer func() { _ = logger.Sync() }()

	logger.Info("logger smoke test")
}

func TestNewLoggerRejectsInvalidLevel(t *testing.T) {
	_, err := telemetry.NewLogger(&telemetry.LogConfig{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	logger, err := telemetry.NewLogger(&telemetry.LogConfig{
		Level:   "debug",
		Format:  "console",
		Service: "agentic-memories",
		Env:     "test",
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	_ = logger.Sync()
}

func TestMetricsRegistered(t *testing.T) {
	metrics := telemetry.NewMetrics()
	require.NotNil(t, metrics.Registry())

	metrics.MemoriesAdded.WithLabelValues("added").Inc()
	metrics.ExtractionFacts.WithLabelValues("kept").Add(3)
	metrics.IntentExecutions.WithLabelValues("success").Inc()
	metrics.IntentsDue.Observe(2)
	metrics.SearchCache.WithLabelValues("hit").Inc()
	metrics.HTTPRequests.WithLabelValues("GET", "/health", "200").Inc()
	metrics.HTTPDuration.WithLabelValues("GET", "/health").Observe(0.01)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"agenticmem_memories_total",
		"agenticmem_extraction_facts_total",
		"agenticmem_intent_executions_total",
		"agenticmem_intents_claimed_per_tick",
		"agenticmem_search_cache_total",
		"agenticmem_http_requests_total",
		"agenticmem_http_request_duration_seconds",
	} {
		assert.True(t, names[want], "metric %s should be registered", want)
	}
}

func TestMetricsUsePrivateRegistry(t *testing.T) {
	a := telemetry.NewMetrics()
	b := telemetry.NewMetrics()
	assert.NotSame(t, a.Registry(), b.Registry(),
		"each Metrics carries its own registry, so two instances never collide")

	var _ prometheus.Gatherer = a.Registry()
}
