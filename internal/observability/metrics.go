// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// Constructor-injected; built once at process init.
type Metrics struct {
	// Discovery metrics
	TokensDiscovered prometheus.Counter

	// Enrichment metrics
	TasksProcessed *prometheus.CounterVec
	TasksDropped   *prometheus.CounterVec
	TokensPruned   *prometheus.CounterVec
	TokensRejected *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
	StageDuration  *prometheus.HistogramVec

	// Scoring and signal metrics
	SnapshotScores *prometheus.HistogramVec
	SignalsEmitted *prometheus.CounterVec

	// Trading metrics
	PositionsOpened *prometheus.CounterVec
	PositionsClosed *prometheus.CounterVec
	BreakerTripped  prometheus.Counter

	// Copy-trade metrics
	CopyEvents *prometheus.CounterVec

	// Provider metrics
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "memescope"
	}

	return &Metrics{
		// Discovery metrics
		TokensDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "tokens_discovered_total",
			Help:      "Total number of token launch events accepted",
		}),

		// Enrichment metrics
		TasksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "tasks_processed_total",
			Help:      "Total number of enrichment tasks processed by stage",
		}, []string{"stage"}),
		TasksDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "tasks_dropped_total",
			Help:      "Total number of enrichment tasks dropped by reason",
		}, []string{"reason"}),
		TokensPruned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "tokens_pruned_total",
			Help:      "Total number of tokens pruned below a stage score threshold",
		}, []string{"stage"}),
		TokensRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "tokens_rejected_total",
			Help:      "Total number of tokens hard-rejected at PRE_SCAN by reason",
		}, []string{"reason"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "queue_depth",
			Help:      "Current number of queued enrichment tasks",
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "stage_duration_seconds",
			Help:      "Enrichment stage execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Scoring and signal metrics
		SnapshotScores: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "snapshot_scores",
			Help:      "Distribution of snapshot scores by variant",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"variant"}),
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "emitted_total",
			Help:      "Total number of signals emitted by status",
		}, []string{"status"}),

		// Trading metrics
		PositionsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened by source",
		}, []string{"source", "paper"}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "positions_closed_total",
			Help:      "Total number of positions closed by reason",
		}, []string{"reason", "paper"}),
		BreakerTripped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "breaker_tripped_total",
			Help:      "Total number of circuit breaker trips",
		}),

		// Copy-trade metrics
		CopyEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "events_total",
			Help:      "Total number of copy-trade events by kind",
		}, []string{"kind"}),

		// Provider metrics
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "providers",
			Name:      "call_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "providers",
			Name:      "call_errors_total",
			Help:      "Total number of provider call errors",
		}, []string{"provider"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTaskProcessed increments the per-stage task counter.
func (m *Metrics) RecordTaskProcessed(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.TasksProcessed.WithLabelValues(stage).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordScores observes both score variants for one snapshot.
func (m *Metrics) RecordScores(v2, v3 int) {
	if m == nil {
		return
	}
	m.SnapshotScores.WithLabelValues("v2").Observe(float64(v2))
	m.SnapshotScores.WithLabelValues("v3").Observe(float64(v3))
}

// RecordSignal increments the per-status signal counter.
func (m *Metrics) RecordSignal(status string) {
	if m == nil {
		return
	}
	m.SignalsEmitted.WithLabelValues(status).Inc()
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(n int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// RecordPositionOpened increments the per-source open counter.
func (m *Metrics) RecordPositionOpened(source string, paper bool) {
	if m == nil {
		return
	}
	m.PositionsOpened.WithLabelValues(source, strconv.FormatBool(paper)).Inc()
}

// RecordPositionClosed increments the per-reason close counter.
func (m *Metrics) RecordPositionClosed(reason string, paper bool) {
	if m == nil {
		return
	}
	m.PositionsClosed.WithLabelValues(reason, strconv.FormatBool(paper)).Inc()
}

// RecordBreakerTrip increments the breaker trip counter.
func (m *Metrics) RecordBreakerTrip() {
	if m == nil {
		return
	}
	m.BreakerTripped.Inc()
}

// RecordCopyEvent increments the per-kind copy-trade counter.
func (m *Metrics) RecordCopyEvent(kind string) {
	if m == nil {
		return
	}
	m.CopyEvents.WithLabelValues(kind).Inc()
}

// RecordProviderCall records one provider call's latency and outcome.
func (m *Metrics) RecordProviderCall(provider string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.ProviderLatency.WithLabelValues(provider).Observe(seconds)
	if err != nil {
		m.ProviderErrors.WithLabelValues(provider).Inc()
	}
}
