// Package metrics holds the Prometheus collectors for both endpoints.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ltgate_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ltgate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	IntakeActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ltgate_intake_actions_total",
			Help: "Intake gateway actions by outcome (ok, invalid, error)",
		},
		[]string{"action", "outcome"},
	)

	ChatLogFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ltgate_chat_log_failures_total",
			Help: "Chat log appends that failed and were skipped",
		},
		[]string{"sender"},
	)

	CompletionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ltgate_completion_requests_total",
			Help: "Completion service calls by outcome (ok, empty, upstream_error, error)",
		},
		[]string{"outcome"},
	)
)

// RecordHTTPRequest records one finished HTTP request.
func RecordHTTPRequest(route, method string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordIntakeAction records the outcome of one intake action.
func RecordIntakeAction(action, outcome string) {
	IntakeActions.WithLabelValues(action, outcome).Inc()
}

// RecordChatLogFailure counts a skipped chat log append.
func RecordChatLogFailure(sender string) {
	ChatLogFailures.WithLabelValues(sender).Inc()
}

// RecordCompletion counts one completion service call.
func RecordCompletion(outcome string) {
	CompletionRequests.WithLabelValues(outcome).Inc()
}
