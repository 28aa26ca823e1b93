// Package metrics holds the Prometheus counters for assignment writes and
// discard batches. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	DiscardItems     *prometheus.CounterVec
	DiscardBatches   *prometheus.CounterVec
	AssignmentWrites *prometheus.CounterVec
	SwitchesTotal    prometheus.Counter
	DiscardDuration  prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		DiscardItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabspace_discard_items_total",
				Help: "Tabs handled by safe discard, by outcome",
			},
			[]string{"outcome"},
		),
		DiscardBatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabspace_discard_batches_total",
				Help: "Safe discard batches, by how the active tab was relocated",
			},
			[]string{"landing"},
		),
		AssignmentWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabspace_assignment_writes_total",
				Help: "Persisted assignment record writes, by operation",
			},
			[]string{"op"},
		),
		SwitchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tabspace_workspace_switches_total",
				Help: "Workspace switches",
			},
		),
		DiscardDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tabspace_discard_duration_seconds",
				Help:    "Safe discard batch duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
	}
}

// DiscardItem counts one discard outcome.
func (m *Metrics) DiscardItem(outcome string) {
	if m == nil {
		return
	}
	m.DiscardItems.WithLabelValues(outcome).Inc()
}

// DiscardBatch counts one batch and its duration.
func (m *Metrics) DiscardBatch(landing string, seconds float64) {
	if m == nil {
		return
	}
	m.DiscardBatches.WithLabelValues(landing).Inc()
	m.DiscardDuration.Observe(seconds)
}

// AssignmentWrite counts one assignment record write.
func (m *Metrics) AssignmentWrite(op string) {
	if m == nil {
		return
	}
	m.AssignmentWrites.WithLabelValues(op).Inc()
}

// Switch counts one workspace switch.
func (m *Metrics) Switch() {
	if m == nil {
		return
	}
	m.SwitchesTotal.Inc()
}
