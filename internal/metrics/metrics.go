// Package metrics provides Prometheus metrics for pipeline runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

const namespace = "tenders"

// Metrics holds the collectors for one process. Each instance owns its
// registry so tests and batch runs never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// RunsTotal tracks pipeline runs by outcome
	RunsTotal *prometheus.CounterVec

	// RunDuration tracks whole-run duration in seconds
	RunDuration prometheus.Histogram

	// StageDuration tracks per-stage duration in seconds
	StageDuration *prometheus.HistogramVec

	// RecordsTotal tracks records emitted by each stage
	RecordsTotal *prometheus.CounterVec

	// RecordsSkipped tracks rows skipped as already persisted
	RecordsSkipped *prometheus.CounterVec

	// RecordsExcluded tracks record-level exclusions by stage and reason
	RecordsExcluded *prometheus.CounterVec

	// VocabularySize tracks the canonical vocabulary after a build
	VocabularySize prometheus.Gauge

	// CanonicalPasses tracks passes needed to reach a fixed point
	CanonicalPasses prometheus.Histogram
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by status",
			},
			[]string{"status"},
		),
		RunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		RecordsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Total number of records emitted by stage",
			},
			[]string{"stage"},
		),
		RecordsSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_skipped_total",
				Help:      "Total number of rows skipped as already persisted",
			},
			[]string{"stage"},
		),
		RecordsExcluded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_excluded_total",
				Help:      "Total number of records excluded by stage and reason",
			},
			[]string{"stage", "reason"},
		),
		VocabularySize: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "vocabulary",
				Name:      "canonical_names",
				Help:      "Number of canonical names after the last build",
			},
		),
		CanonicalPasses: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "vocabulary",
				Name:      "passes",
				Help:      "Canonicalization passes per build",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
		),
	}
}

// Registry returns the registry backing these collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records one stage report
func (m *Metrics) ObserveStage(s model.StageReport) {
	m.StageDuration.WithLabelValues(s.Stage).Observe(s.Duration.Seconds())
	m.RecordsTotal.WithLabelValues(s.Stage).Add(float64(s.Output))
	if s.Skipped > 0 {
		m.RecordsSkipped.WithLabelValues(s.Stage).Add(float64(s.Skipped))
	}
	for reason, n := range s.Excluded {
		m.RecordsExcluded.WithLabelValues(s.Stage, reason).Add(float64(n))
	}
}

// ObserveRun records a finished run; report may be nil on early failure
func (m *Metrics) ObserveRun(report *model.RunReport, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())

	if report != nil && report.Vocabulary != nil {
		m.VocabularySize.Set(float64(report.Vocabulary.Canonical))
		m.CanonicalPasses.Observe(float64(report.Vocabulary.Passes))
	}
}

// Push sends every collector to a Pushgateway
func (m *Metrics) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
