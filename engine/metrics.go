package engine

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mskavach/kavach/model"
)

// Metrics holds the session's Prometheus collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	phase           prometheus.Gauge
	transitions     *prometheus.CounterVec
	classifications *prometheus.CounterVec
	cues            *prometheus.CounterVec
	staleTicks      prometheus.Counter
	resets          prometheus.Counter
}

// NewMetrics registers the kavach collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		phase: f.NewGauge(prometheus.GaugeOpts{
			Name: "kavach_phase",
			Help: "Current escalation phase (0=NORMAL 1=EDGE_ALERT 2=ESCALATION 3=CONTROL_ALERT)",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kavach_transitions_total",
			Help: "Phase transitions by source and target phase",
		}, []string{"from", "to"}),
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kavach_classifications_total",
			Help: "Submitted classifications by type",
		}, []string{"type"}),
		cues: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kavach_cues_total",
			Help: "Deterrence and control-room cues fired",
		}, []string{"cue"}),
		staleTicks: f.NewCounter(prometheus.CounterOpts{
			Name: "kavach_stale_ticks_total",
			Help: "Scheduler runs discarded because their generation was superseded",
		}),
		resets: f.NewCounter(prometheus.CounterOpts{
			Name: "kavach_resets_total",
			Help: "Session resets",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveChange records a phase change.
func (m *Metrics) ObserveChange(c model.PhaseChange) {
	m.phase.Set(float64(c.To))
	m.transitions.WithLabelValues(c.From.String(), c.To.String()).Inc()
}

// ObserveClassification records a submitted classification.
func (m *Metrics) ObserveClassification(c model.Classification) {
	m.classifications.WithLabelValues(c.String()).Inc()
}

// ObserveCue records a fired cue.
func (m *Metrics) ObserveCue(kind string) {
	m.cues.WithLabelValues(kind).Inc()
}

// ObserveStale records a superseded scheduler run.
func (m *Metrics) ObserveStale() {
	m.staleTicks.Inc()
}

// ObserveReset records a reset and the return to NORMAL.
func (m *Metrics) ObserveReset() {
	m.resets.Inc()
	m.phase.Set(float64(model.PhaseNormal))
}
