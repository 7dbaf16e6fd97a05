package monitoring

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// PromTelemetry records run telemetry as Prometheus metrics on its own
// registry, so several instances can coexist in one process.
type PromTelemetry struct {
	registry *prometheus.Registry
	mode     string

	EventsTotal      *prometheus.CounterVec
	EventsFailed     *prometheus.CounterVec
	RunsAborted      *prometheus.CounterVec
	MissingParticles *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	LastRunEvents    prometheus.Gauge
}

// NewPromTelemetry creates the metric set under the given namespace.
func NewPromTelemetry(namespace string) *PromTelemetry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PromTelemetry{
		registry: reg,
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events submitted to runs",
		}, []string{"mode"}),
		EventsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of events whose transform failed",
		}, []string{"mode"}),
		RunsAborted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_aborted_total",
			Help:      "Runs stopped early by a failed event or cancellation",
		}, []string{"mode"}),
		MissingParticles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_missing_particles_total",
			Help:      "Particle slots absent from input events",
		}, []string{"particle"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a batch run in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 60},
		}, []string{"mode"}),
		LastRunEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_events",
			Help:      "Number of events in the most recent run",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (p *PromTelemetry) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PromTelemetry) RunStarted(mode string, events int) {
	p.mode = mode
	p.LastRunEvents.Set(float64(events))
}

func (p *PromTelemetry) EventFailed(int, error) {
	p.EventsFailed.WithLabelValues(p.mode).Inc()
}

func (p *PromTelemetry) RunFinished(stats RunStats) {
	if stats.Aborted {
		p.RunsAborted.WithLabelValues(stats.Mode).Inc()
	}
	p.EventsTotal.WithLabelValues(stats.Mode).Add(float64(stats.Events))
	p.RunDuration.WithLabelValues(stats.Mode).Observe(stats.Duration.Seconds())
	for particle, n := range stats.Missing {
		p.MissingParticles.WithLabelValues(particle).Add(float64(n))
	}
}

// WriteText dumps every gathered metric family in the text exposition format.
func (p *PromTelemetry) WriteText(w io.Writer) error {
	families, err := p.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
