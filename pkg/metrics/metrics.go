// Package metrics records execution and editing metrics with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "workflow"

// Recorder holds the collectors of one Prometheus registry. A nil Recorder
// records nothing.
type Recorder struct {
	nodeStates  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	commands    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		nodeStates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_states_total",
			Help:      "Terminal node states reached during execution, by node kind.",
		}, []string{"kind", "state"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Execution runs by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall clock duration of execution runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_commands_total",
			Help:      "Editing commands applied, undone and redone.",
		}, []string{"action", "direction"}),
	}
}

// NodeState counts a terminal node state.
func (r *Recorder) NodeState(kind, state string) {
	if r == nil {
		return
	}

	r.nodeStates.WithLabelValues(kind, state).Inc()
}

// Run records a finished run.
func (r *Recorder) Run(outcome string, duration time.Duration) {
	if r == nil {
		return
	}

	r.runs.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(duration.Seconds())
}

// Command counts an editing command. direction is "do", "undo" or "redo".
func (r *Recorder) Command(action, direction string) {
	if r == nil {
		return
	}

	r.commands.WithLabelValues(action, direction).Inc()
}
