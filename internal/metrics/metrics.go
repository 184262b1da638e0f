// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation Cycle Metrics
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "instakpi_cycle_duration_seconds",
			Help:    "Duration of a full reconciliation cycle in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	CategoryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "instakpi_category_duration_seconds",
			Help:    "Duration of one category within a cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	CategoryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instakpi_category_errors_total",
			Help: "Failures inside a category, by failure kind",
		},
		[]string{"category", "error_type"}, // error_type: transport, persistence, panic
	)

	RecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instakpi_records_upserted_total",
			Help: "Records written to the store",
		},
		[]string{"entity"}, // post, story, account_kpi
	)

	CycleLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "instakpi_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last cycle in which no category failed",
		},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instakpi_cycles_total",
			Help: "Completed cycles by outcome",
		},
		[]string{"outcome"}, // clean, degraded, skipped
	)

	// Graph API Metrics
	GraphRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_api_requests_total",
			Help: "Graph API requests by endpoint and HTTP status",
		},
		[]string{"endpoint", "status"},
	)

	GraphRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_api_request_duration_seconds",
			Help:    "Graph API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	GraphRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_api_rate_limit_retries_total",
			Help: "Retries after HTTP 429 from the Graph API",
		},
	)

	// Token Refresh Metrics
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instakpi_token_refresh_total",
			Help: "Token refresh attempts by outcome",
		},
		[]string{"outcome"}, // success, exchange_error, store_error
	)

	TokenLastRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "instakpi_token_last_refresh_timestamp",
			Help: "Unix timestamp of the last successful token refresh",
		},
	)

	// Update Channel Metrics
	UpdatesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instakpi_updates_published_total",
			Help: "Update messages handed to a channel",
		},
		[]string{"channel", "result"}, // result: ok, error, dropped
	)

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
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
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

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of record store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Record store operation errors",
		},
		[]string{"backend", "operation"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
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
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "store_backend"},
	)
)

// RecordCycle records the outcome of one reconciliation cycle.
// failures is the number of categories that reported an error.
func RecordCycle(duration time.Duration, failures int) {
	CycleDuration.Observe(duration.Seconds())
	if failures == 0 {
		CyclesTotal.WithLabelValues("clean").Inc()
		CycleLastSuccess.Set(float64(time.Now().Unix()))
		return
	}
	CyclesTotal.WithLabelValues("degraded").Inc()
}

// RecordCategoryError counts a failure inside a category.
func RecordCategoryError(category, errorType string) {
	CategoryErrors.WithLabelValues(category, errorType).Inc()
}

// RecordStoreOperation records a record store call.
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordTokenRefresh records a token refresh attempt.
func RecordTokenRefresh(outcome string) {
	TokenRefreshes.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		TokenLastRefresh.Set(float64(time.Now().Unix()))
	}
}

// SetAppInfo publishes the build info gauge.
func SetAppInfo(version, storeBackend string) {
	AppInfo.WithLabelValues(version, runtime.Version(), storeBackend).Set(1)
}
