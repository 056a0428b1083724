// Package metrics holds the Prometheus collectors for the ledger and its
// HTTP surface. Collectors register on the default registry at init.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zf"

// Reject reasons reported on RejectedActions.
const (
	ReasonInvalidAmount   = "invalid_amount"
	ReasonUnknownCategory = "unknown_category"
	ReasonNoSession       = "no_session"
	ReasonEmptyUsername   = "empty_username"
	ReasonInvalidScreen   = "invalid_screen"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// TransactionsAppended counts accepted transactions by type.
var TransactionsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions_appended_total",
	Help:      "Total transactions appended, by type.",
}, []string{"type"})

// RejectedActions counts ledger actions that were a no-op.
var RejectedActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "rejected_actions_total",
	Help:      "Total ledger actions rejected without state change, by reason.",
}, []string{"reason"})

// UserSwitches counts successful session switches.
var UserSwitches = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "user_switches_total",
	Help:      "Total successful session switches.",
})

// ─── Persistence ────────────────────────────────────────────────────────────

// SnapshotSaves counts snapshot writes by outcome (ok, error).
var SnapshotSaves = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "persist",
	Name:      "snapshot_saves_total",
	Help:      "Total snapshot writes, by outcome.",
}, []string{"outcome"})

// CorruptSnapshots counts stored records that could not be decoded.
var CorruptSnapshots = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "persist",
	Name:      "corrupt_snapshots_total",
	Help:      "Total stored snapshots that failed to decode and were treated as absent.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts served requests by route pattern, method and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests, by route, method and status code.",
}, []string{"route", "method", "status"})

// HTTPDuration observes request latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency in seconds, by route.",
	Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
}, []string{"route"})

// RateLimited counts POST requests refused by the per-client limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Total requests rejected with 429.",
})

// SuspiciousRequests counts requests matching known probe patterns.
var SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "suspicious_requests_total",
	Help:      "Total requests flagged by path, query or user-agent heuristics.",
})

// SaveOutcome records the result of one snapshot write.
func SaveOutcome(err error) {
	if err != nil {
		SnapshotSaves.WithLabelValues("error").Inc()
		return
	}
	SnapshotSaves.WithLabelValues("ok").Inc()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
