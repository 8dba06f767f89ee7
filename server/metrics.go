package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/infumatch/negotiator/pipeline"
)

// Metrics is the Prometheus metrics set for the pipeline and the HTTP layer.
// It implements pipeline.MetricsRecorder.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	stageDuration  *prometheus.HistogramVec
	fallbacksTotal prometheus.Counter
}

// NewMetrics creates and registers the metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "negotiator_runs_total",
			Help: "Pipeline runs by outcome and error code.",
		}, []string{"outcome", "code"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "negotiator_run_duration_seconds",
			Help:    "End-to-end pipeline run duration.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "negotiator_stage_duration_seconds",
			Help:    "Per-stage duration.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"stage"}),
		fallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiator_pattern_fallbacks_total",
			Help: "Reply patterns served from the deterministic fallback template.",
		}),
	}

	registry.MustRegister(m.runsTotal, m.runDuration, m.stageDuration, m.fallbacksTotal)
	return m
}

// ObserveRun records one completed pipeline run. An empty failedStage means
// the run succeeded.
func (m *Metrics) ObserveRun(duration time.Duration, failedStage pipeline.Stage, code pipeline.Code) {
	outcome := "success"
	if failedStage != "" {
		outcome = "failure"
	}
	m.runsTotal.WithLabelValues(outcome, string(code)).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// ObserveStage records one completed stage.
func (m *Metrics) ObserveStage(stage pipeline.Stage, duration time.Duration) {
	m.stageDuration.WithLabelValues(string(stage)).Observe(duration.Seconds())
}

// ObserveFallbacks records how many patterns in a run came from the fallback
// template.
func (m *Metrics) ObserveFallbacks(count int) {
	m.fallbacksTotal.Add(float64(count))
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ pipeline.MetricsRecorder = (*Metrics)(nil)
