package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/notify"
)

// loop is the interpreter loop. It returns when the run is Stopped, the
// context ends or a fatal fault occurs.
func (e *Executor) loop(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.State() == Stopped {
			return e.stoppedErr()
		}

		// Fatal faults raised by loop fan-out workers.
		select {
		case err := <-e.faults:
			return err
		default:
		}

		if e.sched.Remaining() == 0 {
			switch exhausted := e.exhausted(); {
			case len(exhausted) > 0:
				e.tripBreaker(ctx, exhausted)
			case e.opts.Interactive:
				if e.State() != Paused {
					logger.Info("Workflow has no remaining work, pausing.")
					_ = e.transition(Paused)
				}
			default:
				logger.Info("Workflow has no remaining work.")
				_ = e.transition(Stopped)
				continue
			}
		}

		if e.State() == Paused {
			e.publishOutputs(ctx)
			e.idle(ctx, 0)
			continue
		}

		dispatched, err := e.dispatchReady(ctx, e.sched.Ready())
		if err != nil {
			return err
		}

		e.publishOutputs(ctx)

		if dispatched == 0 {
			if !e.anyExecuting() {
				if exhausted := e.exhausted(); len(exhausted) > 0 {
					e.tripBreaker(ctx, exhausted)
					continue
				}
			}
			e.idle(ctx, e.opts.PollInterval)
		}
	}
}

// dispatchReady dispatches ready nodes in order until the set is exhausted
// or the run leaves the Running/Step states. It returns how many nodes were
// dispatched.
func (e *Executor) dispatchReady(ctx context.Context, ready []*node.Node) (int, error) {
	logger := ctxlog.FromContext(ctx)
	dispatched := 0
	for _, n := range ready {
		if st := e.State(); st == Paused || st == Stopped || ctx.Err() != nil {
			break
		}
		// An earlier dispatch in this pass may have changed readiness.
		if !e.sched.IsReady(n) {
			continue
		}
		if e.opts.Interactive && n.Breakpoint() && !e.passed[n.ID] {
			e.passed[n.ID] = true
			logger.Info("⏸️ Breakpoint reached.", "node", n.ID)
			_ = e.transition(Paused)
			break
		}
		delete(e.passed, n.ID)

		handed, err := e.dispatch(ctx, n)
		if err != nil {
			return dispatched, err
		}
		if !handed {
			continue
		}
		dispatched++
		if e.State() == Step {
			_ = e.transition(Paused)
			break
		}
	}
	return dispatched, nil
}

// idle blocks until the loop is woken, ctx ends or d elapses. A zero d
// waits without a timeout.
func (e *Executor) idle(ctx context.Context, d time.Duration) {
	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-e.wake:
	case <-ctx.Done():
	case <-timeout:
	}
}

func (e *Executor) anyExecuting() bool {
	for _, n := range e.g.Nodes() {
		if n.State() == node.Executing {
			return true
		}
	}
	return false
}

// exhausted returns the IDs of retryable nodes that failed on every
// allowed attempt.
func (e *Executor) exhausted() []string {
	var ids []string
	for _, n := range e.g.Nodes() {
		if n.State() == node.Failed && n.Kind.Retryable() && !e.retries.CanRetry(n.ID) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// tripBreaker handles retry exhaustion for the whole workflow: interactive
// runs pause so the user can reset a node's budget, headless runs stop.
func (e *Executor) tripBreaker(ctx context.Context, ids []string) {
	logger := ctxlog.FromContext(ctx)
	logger.Error("Retry budget exhausted.", "nodes", ids, "max_retry", e.retries.Max())
	if e.opts.Interactive {
		if e.State() != Paused {
			_ = e.transition(Paused)
		}
		return
	}
	e.mu.Lock()
	e.stopErr = fmt.Errorf("%w: %v", ErrRetryExhausted, ids)
	e.mu.Unlock()
	_ = e.transition(Stopped)
}

func (e *Executor) stoppedErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopErr
}

// finish runs the exit sequence of a run: stop fan-out workers, report the
// remaining outputs, publish WorkflowTerminated, release invokers and
// return to None.
func (e *Executor) finish(ctx context.Context, run *Run, runErr error) {
	logger := ctxlog.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	if st := e.State(); st.Active() {
		_ = e.transition(Stopped)
	}
	e.cancel()
	_ = e.pool.Wait()

	if runErr == nil {
		select {
		case runErr = <-e.faults:
		default:
		}
	}
	if runErr == nil {
		if ids := e.exhausted(); len(ids) > 0 {
			runErr = fmt.Errorf("%w: %v", ErrRetryExhausted, ids)
		}
	}

	e.publishOutputs(ctx)
	run.outputs = e.collectOutputs()

	ev := notify.Event{Type: notify.WorkflowTerminated}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	e.publish(ctx, ev)

	released := e.store.Release()
	run.err = runErr

	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()
	_ = e.transition(None)

	if runErr != nil {
		logger.Error("❌ Workflow run ended with an error.", "error", runErr, "released_invokers", released)
	} else {
		logger.Info("✅ Workflow run finished.", "outputs", len(run.outputs), "released_invokers", released)
	}
	close(run.done)
}
