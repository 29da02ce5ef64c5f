package validate

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for validation runs. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Run outcomes, labelled "ok" or by error kind
	runs *prometheus.CounterVec

	// Per-table verification outcomes
	tables *prometheus.CounterVec

	// Pipeline latency
	stageDuration *prometheus.HistogramVec
	runDuration   prometheus.Histogram
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semval_validation_runs_total",
				Help: "Total number of semantic model validation runs by result",
			},
			[]string{"result"},
		),

		tables: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semval_tables_verified_total",
				Help: "Total number of logical tables checked against the warehouse by result",
			},
			[]string{"result"},
		),

		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semval_stage_duration_seconds",
				Help:    "Duration of each validation stage in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
			[]string{"stage"},
		),

		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "semval_validation_duration_seconds",
				Help:    "Duration of a whole validation run in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}
}

// Registry exposes the underlying registry, e.g. for a push gateway.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun records the outcome of one run.
func (m *Metrics) RecordRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
}

// RecordTable records one table verification.
func (m *Metrics) RecordTable(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.tables.WithLabelValues(result).Inc()
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
