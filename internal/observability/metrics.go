// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. A single
// instance is created at startup and handed to each component.
type Metrics struct {
	// Connection metrics
	RPCRequestsTotal  prometheus.Counter
	RPCFailuresTotal  prometheus.Counter
	RPCCallLatency    *prometheus.HistogramVec
	ReconnectAttempts prometheus.Counter
	StreamReconnects  prometheus.Counter
	ConnectionUp      prometheus.Gauge

	// Tracker metrics
	TrackedTransactions *prometheus.GaugeVec
	StatusTransitions   *prometheus.CounterVec
	PollCyclesTotal     prometheus.Counter
	ConfirmationLatency prometheus.Histogram
	ListenerPanics      prometheus.Counter

	// Persistence metrics
	SnapshotDuration prometheus.Histogram
	SnapshotErrors   prometheus.Counter
	SnapshotEntries  prometheus.Gauge
	ArchiveWrites    prometheus.Counter
	ArchiveErrors    prometheus.Counter

	// Error reporting metrics
	ReportedErrors *prometheus.CounterVec

	// Health metrics
	LastPingTimestamp prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
// Register once per process; promauto panics on duplicate registration.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_tx_monitor"
	}

	return &Metrics{
		// Connection metrics
		RPCRequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "rpc_requests_total",
			Help:      "Total number of RPC requests issued",
		}),
		RPCFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "rpc_failures_total",
			Help:      "Total number of RPC requests that failed after retries",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ReconnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of RPC reconnection attempts",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "stream_reconnects_total",
			Help:      "Total number of WebSocket stream reconnections",
		}),
		ConnectionUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "up",
			Help:      "Whether the RPC connection is currently established (1 or 0)",
		}),

		// Tracker metrics
		TrackedTransactions: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "transactions",
			Help:      "Number of tracked transactions by status",
		}, []string{"status"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "status_transitions_total",
			Help:      "Total number of status transitions by type and resulting status",
		}, []string{"type", "status"}),
		PollCyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "poll_cycles_total",
			Help:      "Total number of confirmation poll cycles executed",
		}),
		ConfirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from submission to confirmed status in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		}),
		ListenerPanics: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "listener_panics_total",
			Help:      "Total number of recovered status listener panics",
		}),

		// Persistence metrics
		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_duration_seconds",
			Help:      "History snapshot write duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_errors_total",
			Help:      "Total number of failed history snapshot writes",
		}),
		SnapshotEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_entries",
			Help:      "Number of entries written in the last history snapshot",
		}),
		ArchiveWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_writes_total",
			Help:      "Total number of terminal transactions archived",
		}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_errors_total",
			Help:      "Total number of failed archive writes",
		}),

		// Error reporting metrics
		ReportedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "errors",
			Name:      "reported_total",
			Help:      "Total number of reported errors by kind and severity",
		}, []string{"kind", "severity"}),

		// Health metrics
		LastPingTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_ping_timestamp",
			Help:      "Unix timestamp of the last successful liveness ping",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRPCCall records one RPC request with its latency and outcome.
func (m *Metrics) RecordRPCCall(method string, seconds float64, err error) {
	m.RPCRequestsTotal.Inc()
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		m.RPCFailuresTotal.Inc()
	}
}

// RecordReportedError increments the reported errors counter. This
// satisfies the error reporter's metrics recorder hook.
func (m *Metrics) RecordReportedError(kind, severity string) {
	m.ReportedErrors.WithLabelValues(kind, severity).Inc()
}

// SetConnectionUp flips the connection gauge.
func (m *Metrics) SetConnectionUp(up bool) {
	if up {
		m.ConnectionUp.Set(1)
	} else {
		m.ConnectionUp.Set(0)
	}
}

// RecordTransition records one status transition.
func (m *Metrics) RecordTransition(txType, status string) {
	m.StatusTransitions.WithLabelValues(txType, status).Inc()
}

// SetTrackedTransactions updates the per-status gauge.
func (m *Metrics) SetTrackedTransactions(status string, n int) {
	m.TrackedTransactions.WithLabelValues(status).Set(float64(n))
}

// RecordSnapshot records one history snapshot write.
func (m *Metrics) RecordSnapshot(seconds float64, entries int, err error) {
	m.SnapshotDuration.Observe(seconds)
	if err != nil {
		m.SnapshotErrors.Inc()
		return
	}
	m.SnapshotEntries.Set(float64(entries))
}

// RecordArchiveWrite records one terminal transaction archive write.
func (m *Metrics) RecordArchiveWrite(err error) {
	if err != nil {
		m.ArchiveErrors.Inc()
		return
	}
	m.ArchiveWrites.Inc()
}
