package executor

import (
	"context"
	"errors"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/resource"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// dispatch executes one ready node according to its kind. It reports
// whether the node was handed off; the error is non-nil only for faults that
// end the run.
func (e *Executor) dispatch(ctx context.Context, n *node.Node) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "dispatch "+n.Kind.String(), trace.WithAttributes(
		attribute.String("gridflow.node", n.ID),
		attribute.String("gridflow.kind", n.Kind.String()),
	))
	defer span.End()
	ctx, logger := ctxlog.With(ctx, "node", n.ID, "kind", n.Kind.String())

	prev := n.State()
	if prev == node.Failed {
		logger.Warn("🔁 Retrying failed node.", "retries_used", e.retries.Count(n.ID), "max_retry", e.retries.Max(), "last_error", n.Err())
	}
	// Invokers are never reused across attempts.
	e.store.Delete(n.ID)
	e.setNodeState(ctx, n, node.Executing)
	logger.Debug("Dispatching node.")

	handed, err := e.execute(ctx, n)
	if err == nil && !handed {
		e.setNodeState(ctx, n, prev)
		return false, nil
	}
	if prev == node.Failed {
		span.SetAttributes(attribute.Int("gridflow.retry", e.retries.Record(n.ID)))
	}
	if err == nil {
		return true, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	n.SetErr(err)
	e.setNodeState(ctx, n, node.Failed)

	if e.State() == Stopped || ctx.Err() != nil {
		logger.Info("Node interrupted by stop.", "error", err)
		return true, nil
	}
	if !isTransient(err) || !n.Kind.Retryable() {
		logger.Error("❌ Node failed with a fatal fault.", "error", err)
		return true, asFatal(n.ID, err)
	}

	logger.Warn("Node invocation failed.", "error", err, "retries_used", e.retries.Count(n.ID))
	if !e.retries.CanRetry(n.ID) {
		e.tripBreaker(ctx, []string{n.ID})
	}
	return true, nil
}

func (e *Executor) execute(ctx context.Context, n *node.Node) (bool, error) {
	switch n.Kind {
	case node.ServiceCall, node.DynamicCall:
		return true, e.runCall(ctx, n)
	case node.Conditional:
		return true, e.runConditional(ctx, n)
	case node.ConditionalJoin:
		return true, e.runJoin(ctx, n)
	case node.Loop:
		return e.startLoop(ctx, n)
	case node.SubWorkflow:
		return true, e.runSubWorkflow(ctx, n)
	case node.ResourceStart:
		return true, e.runResourceStart(ctx, n)
	case node.ResourceStop:
		return true, e.runResourceStop(ctx, n)
	}
	return true, structural(n.ID, "nodes of kind %s are not dispatched", n.Kind)
}

// complete stores the node's invoker, meets every control-out condition and
// marks the node Finished.
func (e *Executor) complete(ctx context.Context, n *node.Node, inv invoker.Invoker) {
	if inv != nil {
		e.store.Set(n.ID, inv)
	}
	for _, p := range n.ControlOut {
		p.SetConditionMet(true)
	}
	e.setNodeState(ctx, n, node.Finished)
}

// isTransient reports whether err is an invocation fault that may succeed
// on retry.
func isTransient(err error) bool {
	var se *StructuralError
	if errors.As(err, &se) || resource.IsFault(err) {
		return false
	}
	return invoker.IsFault(err)
}

func asFatal(id string, err error) error {
	var se *StructuralError
	if errors.As(err, &se) || resource.IsFault(err) {
		return err
	}
	return &StructuralError{Node: id, Err: err}
}
