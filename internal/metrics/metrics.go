// Package metrics exposes interpreter activity as Prometheus metrics. The
// Listener is registered with an executor and turns node and execution
// state changes into counters and gauges.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/node"
)

const namespace = "gridflow"

// Listener records executor events. It is safe for concurrent use.
type Listener struct {
	transitions    *prometheus.CounterVec
	executing      prometheus.Gauge
	executionState *prometheus.GaugeVec
	runs           prometheus.Counter
}

var _ executor.Listener = (*Listener)(nil)

// New creates a Listener and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Listener, error) {
	l := &Listener{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "transitions_total",
			Help:      "Node state changes by target state.",
		}, []string{"state"}),
		executing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "executing",
			Help:      "Nodes currently executing.",
		}),
		executionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "execution_state",
			Help:      "1 for the current execution state of the interpreter, 0 otherwise.",
		}, []string{"state"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Workflow runs that returned to the idle state.",
		}),
	}
	for _, c := range []prometheus.Collector{l.transitions, l.executing, l.executionState, l.runs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	for _, s := range []executor.State{executor.None, executor.Running, executor.Paused, executor.Step, executor.Stopped} {
		l.executionState.WithLabelValues(s.String()).Set(0)
	}
	l.executionState.WithLabelValues(executor.None.String()).Set(1)
	return l, nil
}

func (l *Listener) NodeStateChanged(_ context.Context, _ string, from, to node.State) {
	l.transitions.WithLabelValues(to.String()).Inc()
	if to == node.Executing {
		l.executing.Inc()
	}
	if from == node.Executing {
		l.executing.Dec()
	}
}

func (l *Listener) ExecutionStateChanged(_ context.Context, from, to executor.State) {
	l.executionState.WithLabelValues(from.String()).Set(0)
	l.executionState.WithLabelValues(to.String()).Set(1)
	if to == executor.None {
		l.runs.Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
