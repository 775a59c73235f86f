// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe result labels.
const (
	ProbeResultOK        = "ok"
	ProbeResultStatus    = "status_error"
	ProbeResultTransport = "transport_error"
	ProbeResultTimeout   = "timeout"
)

// Metrics exposes Prometheus metrics for the validation engine. A nil
// *Metrics is valid and records nothing, so wiring metrics stays
// optional for embedded and test use.
type Metrics struct {
	registry *prometheus.Registry

	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	referencesTotal *prometheus.CounterVec
	batchDuration   prometheus.Histogram

	repairsTotal *prometheus.CounterVec

	activeRun          prometheus.Gauge
	progressTotal      prometheus.Gauge
	progressProcessed  prometheus.Gauge
	reportsPersisted   *prometheus.CounterVec
	runFailures        prometheus.Counter
	runsCompletedTotal prometheus.Counter
}

// MetricsConfig configures the metrics namespace.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// NewMetrics creates a metrics set on a private registry.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "etoile"
	}
	if config.Subsystem == "" {
		config.Subsystem = "media_validator"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		probesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "probes_total",
			Help:      "Reachability probes by result",
		}, []string{"result"}),

		probeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "probe_duration_seconds",
			Help:      "Reachability probe duration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"result"}),

		referencesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "references_total",
			Help:      "Validated media references by collection and outcome",
		}, []string{"collection", "outcome"}),

		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "batch_duration_seconds",
			Help:      "Duration of one validation batch including the join",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		repairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "repairs_total",
			Help:      "Repair actions by kind and result",
		}, []string{"kind", "result"}),

		activeRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "active_run",
			Help:      "1 while a validation run is RUNNING",
		}),

		progressTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "progress_total_items",
			Help:      "Total references in the current run",
		}),

		progressProcessed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "progress_processed_items",
			Help:      "References processed so far in the current run",
		}),

		reportsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "reports_persisted_total",
			Help:      "Persisted reports by type",
		}, []string{"type"}),

		runFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "run_failures_total",
			Help:      "Validation runs that ended in FAILED",
		}),

		runsCompletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "runs_completed_total",
			Help:      "Validation runs that ended in COMPLETED",
		}),
	}
}

// Handler returns the HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveProbe records one probe exchange.
func (m *Metrics) ObserveProbe(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(result).Inc()
	m.probeDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// IncReference records one validated reference.
func (m *Metrics) IncReference(collection, outcome string) {
	if m == nil {
		return
	}
	m.referencesTotal.WithLabelValues(collection, outcome).Inc()
}

// ObserveBatch records one completed batch.
func (m *Metrics) ObserveBatch(duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}

// IncRepair records one repair action.
func (m *Metrics) IncRepair(kind, result string) {
	if m == nil {
		return
	}
	m.repairsTotal.WithLabelValues(kind, result).Inc()
}

// SetActiveRun flips the active-run gauge.
func (m *Metrics) SetActiveRun(active bool) {
	if m == nil {
		return
	}
	if active {
		m.activeRun.Set(1)
	} else {
		m.activeRun.Set(0)
	}
}

// SetProgress updates the progress gauges.
func (m *Metrics) SetProgress(processed, total int) {
	if m == nil {
		return
	}
	m.progressProcessed.Set(float64(processed))
	m.progressTotal.Set(float64(total))
}

// IncReportPersisted records a persisted report.
func (m *Metrics) IncReportPersisted(reportType string) {
	if m == nil {
		return
	}
	m.reportsPersisted.WithLabelValues(reportType).Inc()
}

// IncRunFailure records a failed run.
func (m *Metrics) IncRunFailure() {
	if m == nil {
		return
	}
	m.runFailures.Inc()
}

// IncRunCompleted records a completed run.
func (m *Metrics) IncRunCompleted() {
	if m == nil {
		return
	}
	m.runsCompletedTotal.Inc()
}
