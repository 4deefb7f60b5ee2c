// Package executor implements the workflow interpreter: the level-triggered
// scheduling loop, the per-kind dispatcher, retry handling, loop fan-out and
// nested sub-workflow runs.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/inmemorystore"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/specialistvlad/gridflow/internal/executor"

// Executor interprets one graph instance. Runs are sequential: Start fails
// with ErrAlreadyRunning while a run is active.
type Executor struct {
	g        *graph.Graph
	opts     Options
	sched    *scheduler.Scheduler
	retries  *scheduler.RetryCounter
	listener listeners
	tracer   trace.Tracer

	mu       sync.Mutex
	state    State
	stopErr  error
	runCtx   context.Context
	cancel   context.CancelFunc
	current  *Run
	children map[*Executor]struct{}
	// ancestry names the workflows of the enclosing nested runs, outermost
	// first.
	ancestry []string

	// Per-run state, reset by Start.
	runID    string
	store    *inmemorystore.Store
	pool     *errgroup.Group
	faults   chan error
	wake     chan struct{}
	reported map[string]bool
	// passed holds breakpoint nodes already paused on in their current
	// arrival.
	passed map[string]bool
}

// New creates an executor over g.
func New(g *graph.Graph, opts Options) *Executor {
	opts = opts.withDefaults()
	retries := scheduler.NewRetryCounter(max(opts.MaxRetry, 0))
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Executor{
		g:        g,
		opts:     opts,
		retries:  retries,
		sched:    scheduler.New(g, retries),
		listener: listeners(opts.Listeners),
		tracer:   tracer,
		children: make(map[*Executor]struct{}),
		wake:     make(chan struct{}, 1),
	}
}

// Graph returns the graph the executor interprets.
func (e *Executor) Graph() *graph.Graph {
	return e.g
}

// Run is one execution of the graph.
type Run struct {
	ID      string
	done    chan struct{}
	err     error
	outputs map[string]cty.Value
}

// Wait blocks until the run has fully ended and returns its error.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Done is closed once the run has ended.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Outputs returns the values of the Output nodes that were reportable when
// the run ended, keyed by node name. It is only valid after Wait.
func (r *Run) Outputs() map[string]cty.Value {
	<-r.done
	return r.outputs
}

// Start begins a run in the background. Input, Constant and S3Input nodes
// are resolved before Start returns; a failure there is returned directly.
func (e *Executor) Start(ctx context.Context) (*Run, error) {
	e.mu.Lock()
	// current is claimed under the same lock, so a concurrent Start sees
	// it before the state leaves None.
	if e.state != None || e.current != nil {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "workflow", e.g.Name(), "run_id", runID)
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{ID: runID, done: make(chan struct{})}

	e.runID = runID
	e.runCtx = runCtx
	e.cancel = cancel
	e.current = run
	e.stopErr = nil
	e.store = inmemorystore.New()
	e.pool = new(errgroup.Group)
	e.pool.SetLimit(e.opts.LoopWorkers)
	e.faults = make(chan error, len(e.g.Nodes())+1)
	e.reported = make(map[string]bool)
	e.passed = make(map[string]bool)
	e.mu.Unlock()

	e.g.Reset()
	e.retries.ResetAll()
	if err := e.transition(Running); err != nil {
		cancel()
		e.mu.Lock()
		e.current = nil
		e.mu.Unlock()
		return nil, err
	}

	logger.Info("▶️ Starting workflow run.", "nodes", len(e.g.Nodes()), "interactive", e.opts.Interactive)
	if err := e.resolveSources(runCtx); err != nil {
		logger.Error("Failed to resolve workflow inputs.", "error", err)
		e.finish(runCtx, run, err)
		return nil, err
	}

	go func() {
		err := e.loop(runCtx)
		e.finish(runCtx, run, err)
	}()
	return run, nil
}

// Run starts a run and waits for it to end.
func (e *Executor) Run(ctx context.Context) error {
	run, err := e.Start(ctx)
	if err != nil {
		return err
	}
	return run.Wait()
}

// Close stops the active run, if any, and waits for it to end.
func (e *Executor) Close() error {
	e.mu.Lock()
	run := e.current
	e.mu.Unlock()
	if run == nil {
		return nil
	}
	if err := e.Stop(); err != nil && !errors.Is(err, ErrInvalidTransition) {
		return err
	}
	err := run.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrRetryExhausted) {
		return nil
	}
	return err
}

// State returns the current execution state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// transition moves the execution state and notifies listeners.
func (e *Executor) transition(to State) error {
	e.mu.Lock()
	from := e.state
	if !canTransition(from, to) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	e.state = to
	ctx := e.runCtx
	e.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	ctxlog.FromContext(ctx).Debug("Execution state changed.", "from", from, "to", to)
	e.listener.ExecutionStateChanged(ctx, from, to)
	e.signal()
	return nil
}

// signal wakes the interpreter loop without blocking.
func (e *Executor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// setNodeState changes a node's state and reports the change.
func (e *Executor) setNodeState(ctx context.Context, n *node.Node, to node.State) {
	from := n.SetState(to)
	if from == to {
		return
	}
	e.listener.NodeStateChanged(ctx, n.ID, from, to)
	e.publishProgress(ctx, n, to)
}
