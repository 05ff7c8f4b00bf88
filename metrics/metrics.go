// Package metrics provides Prometheus metrics for the MediaWiki session client.
// It tracks API round trips, authentication, edits, feed pagination and tool calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "mediawiki_session"
)

var (
	// RequestsTotal counts MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "tool_requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures tool call latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "tool_request_duration_seconds",
		Help:      "Tool call latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing tool calls
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "tool_requests_in_flight",
		Help:      "Number of tool calls currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// APIRequestsTotal counts wiki API round trips
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_requests_total",
		Help:      "Total wiki API requests by action, HTTP method and status",
	}, []string{"action", "method", "status"})

	// APILatency measures wiki API round-trip latency
	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "api_latency_seconds",
		Help:      "Wiki API call latency by action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// APIErrors counts failed API calls by error code
	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_errors_total",
		Help:      "Wiki API errors by action and error code",
	}, []string{"action", "error_code"})

	// APIRetries counts transport-level retries
	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_retries_total",
		Help:      "Transport retry count by HTTP method",
	}, []string{"method"})

	// CircuitRejections counts requests refused by an open circuit breaker
	CircuitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "circuit_rejections_total",
		Help:      "Requests rejected because the circuit breaker was open",
	})

	// RateLimitWaits counts requests that had to wait for a transport slot
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Requests that waited for the transport semaphore",
	})

	// AuthFailures counts authentication failures
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_failures_total",
		Help:      "Authentication failure count by reason",
	}, []string{"reason"})

	// EditOperations counts edit attempts by outcome (sent, skipped, error)
	EditOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "edit_operations_total",
		Help:      "Edit operations by type and status",
	}, []string{"operation", "status"})

	// ContentSize tracks page text sizes read and written
	ContentSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "content_size_bytes",
		Help:      "Content size distribution in bytes",
		Buckets:   []float64{100, 1000, 10000, 50000, 100000, 250000, 500000, 1000000},
	}, []string{"operation"})

	// RecentChangesBatches counts recent-changes pages fetched, split by whether the feed ended
	RecentChangesBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "recent_changes_batches_total",
		Help:      "Recent-changes batches fetched by continuation outcome",
	}, []string{"outcome"})
)

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	RequestsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records one wiki API round trip
func RecordAPICall(action, method string, duration float64, success bool, errorCode string) {
	APIRequestsTotal.WithLabelValues(action, method, statusLabel(success)).Inc()
	APILatency.WithLabelValues(action).Observe(duration)
	if errorCode != "" {
		APIErrors.WithLabelValues(action, errorCode).Inc()
	}
}

// RecordEdit records an edit outcome and, when content was sent, its size
func RecordEdit(status string, size int) {
	EditOperations.WithLabelValues("edit", status).Inc()
	if status == "sent" {
		ContentSize.WithLabelValues("edit").Observe(float64(size))
	}
}

// RecordRecentChangesBatch records one fetched feed batch
func RecordRecentChangesBatch(finished bool) {
	outcome := "more"
	if finished {
		outcome = "finished"
	}
	RecentChangesBatches.WithLabelValues(outcome).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
