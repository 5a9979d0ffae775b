// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Edge Cache Metrics
	EdgeCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_requests_total",
			Help: "Edge cache lookups by prefix and status (HIT, MISS, BYPASS)",
		},
		[]string{"prefix", "status"},
	)

	EdgeCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_errors_total",
			Help: "Edge cache backend errors",
		},
		[]string{"backend", "operation"},
	)

	EdgeCacheWriteQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edge_cache_write_queue_depth",
			Help: "Pending deferred cache writes",
		},
	)

	EdgeCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "edge_cache_entries",
			Help: "Entries held by the edge cache backend (where countable)",
		},
		[]string{"backend"},
	)

	// Upstream Metrics
	UpstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_attempts_total",
			Help: "GraphQL upstream attempts by dataset and result (success, retry, failure)",
		},
		[]string{"dataset", "result"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of a single upstream GraphQL attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"dataset"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Overlay Metrics
	OverlayLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_loads_total",
			Help: "Overlay document loads by result",
		},
		[]string{"result"},
	)

	OverlayLastLoad = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overlay_last_load_timestamp_seconds",
			Help: "Unix time of the last successful overlay load",
		},
	)

	// Progress Metrics
	ProgressMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_merges_total",
			Help: "Progress snapshot merges performed",
		},
	)

	ProgressRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_repairs_total",
			Help: "Records repaired by kind (failed_task, hideout_prereq, edition_hideout)",
		},
		[]string{"kind"},
	)

	ProgressSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_saves_total",
			Help: "Progress upserts by result",
		},
		[]string{"result"},
	)

	DebouncePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_debounce_pending",
			Help: "Debounced writes waiting for their window to close",
		},
	)

	// Store Metrics
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Badger table operations",
		},
		[]string{"table", "operation", "result"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Current number of team websocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Total number of websocket messages sent",
		},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheStatus counts one edge cache outcome.
func RecordCacheStatus(prefix, status string) {
	EdgeCacheRequests.WithLabelValues(prefix, status).Inc()
}

// RecordCacheError counts an edge cache backend failure.
func RecordCacheError(backend, operation string) {
	EdgeCacheErrors.WithLabelValues(backend, operation).Inc()
}

// RecordUpstreamAttempt counts one upstream attempt outcome.
func RecordUpstreamAttempt(dataset, result string) {
	UpstreamAttempts.WithLabelValues(dataset, result).Inc()
}

// RecordRepairs adds n repaired records of the given kind. Zero is a no-op.
func RecordRepairs(kind string, n int) {
	if n <= 0 {
		return
	}
	ProgressRepairs.WithLabelValues(kind).Add(float64(n))
}

// RecordStoreOp counts a table operation.
func RecordStoreOp(table, operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(table, operation, result).Inc()
}
