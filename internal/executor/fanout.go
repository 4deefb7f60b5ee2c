package executor

import (
	"context"
	"maps"
	"strings"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// startLoop resolves the iteration source and the body's fixed inputs,
// then hands the loop construct to a fan-out worker. It reports false when
// no worker is free; the construct is left as it was.
func (e *Executor) startLoop(ctx context.Context, n *node.Node) (bool, error) {
	lc, ok := e.g.LoopConstruct(n.ID)
	if !ok {
		return true, structural(n.ID, "loop has no body")
	}
	items, err := e.iterationItems(n)
	if err != nil {
		return true, err
	}
	fixed := make(map[string]cty.Value)
	for _, p := range lc.Body.Inputs {
		if p.Name == lc.VaryingPort {
			continue
		}
		v, err := e.inputValue(lc.Body, p)
		if err != nil {
			return true, err
		}
		fixed[p.Name] = v
	}

	e.store.Delete(lc.Body.ID)
	e.store.Delete(lc.Join.ID)
	e.setNodeState(ctx, lc.Body, node.Executing)
	e.setNodeState(ctx, lc.Join, node.Executing)

	started := e.pool.TryGo(func() error {
		e.fanOut(ctx, lc, items, fixed)
		return nil
	})
	if !started {
		e.setNodeState(ctx, lc.Join, node.Waiting)
		e.setNodeState(ctx, lc.Body, node.Waiting)
		ctxlog.FromContext(ctx).Debug("No fan-out worker free, loop deferred.")
		return false, nil
	}
	ctxlog.FromContext(ctx).Info("Loop handed to fan-out worker.", "iterations", len(items), "body", lc.Body.ID)
	return true, nil
}

// iterationItems resolves the Loop's single input into its elements. A
// string is split on commas.
func (e *Executor) iterationItems(n *node.Node) ([]cty.Value, error) {
	v, err := e.inputValue(n, n.Inputs[0])
	if err != nil {
		return nil, err
	}
	if v.IsNull() || !v.IsWhollyKnown() {
		return nil, structural(n.ID, "iteration source has no value")
	}

	var items []cty.Value
	if v.Type() == cty.String {
		for _, s := range strings.Split(v.AsString(), ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, cty.StringVal(s))
			}
		}
	} else {
		items, err = ctyutil.Elements(v)
		if err != nil {
			return nil, structural(n.ID, "iteration source: %w", err)
		}
	}
	if len(items) == 0 {
		return nil, structural(n.ID, "iteration source is empty")
	}
	return items, nil
}

// fanOut runs on a pool worker and owns the three construct nodes until it
// flips them to Finished or gives them back.
func (e *Executor) fanOut(ctx context.Context, lc *graph.LoopConstruct, items []cty.Value, fixed map[string]cty.Value) {
	logger := ctxlog.FromContext(ctx)
	results := make(map[string][]cty.Value, len(lc.Body.Outputs))

	for i, item := range items {
		if ctx.Err() != nil || e.State() == Stopped {
			e.abandonLoop(ctx, lc)
			return
		}
		inputs := maps.Clone(fixed)
		inputs[lc.VaryingPort] = item

		out, err := e.invokeBody(ctx, lc.Body, inputs)
		if err != nil {
			e.failLoop(ctx, lc, err)
			return
		}
		for _, p := range lc.Body.Outputs {
			v, ok := out[p.Name]
			if !ok {
				e.failLoop(ctx, lc, structural(lc.Body.ID, "iteration %d produced no %q", i, p.Name))
				return
			}
			results[p.Name] = append(results[p.Name], v)
		}
		logger.Debug("Loop iteration finished.", "iteration", i, "item", ctyutil.ForLogs(item))
	}

	body := invoker.NewSystem(lc.Body.ID)
	for name, vals := range results {
		body.SetOutput(name, ctyutil.Aggregate(vals))
	}
	join := invoker.NewSystem(lc.Join.ID)
	for k, p := range lc.Join.Inputs {
		join.SetOutput(lc.Join.Outputs[k].Name, ctyutil.Aggregate(results[p.Source.Name]))
	}
	loop := invoker.NewSystem(lc.Loop.ID)
	for _, p := range lc.Loop.Outputs {
		loop.SetOutput(p.Name, ctyutil.Aggregate(items))
	}

	e.complete(ctx, lc.Loop, loop)
	e.complete(ctx, lc.Body, body)
	e.complete(ctx, lc.Join, join)
	logger.Info("✅ Loop fan-out finished.", "iterations", len(items))
	e.signal()
}

func (e *Executor) invokeBody(ctx context.Context, body *node.Node, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	if body.Kind == node.SubWorkflow {
		return e.runNested(ctx, body, inputs)
	}
	inv, err := e.invokeCall(ctx, body, inputs)
	if err != nil {
		return nil, err
	}
	return inv.Outputs(), nil
}

// failLoop gives the body and join back to the main loop and marks the
// Loop Failed. Invocation faults leave the Loop eligible for retry; any
// other fault ends the run.
func (e *Executor) failLoop(ctx context.Context, lc *graph.LoopConstruct, err error) {
	logger := ctxlog.FromContext(ctx)
	e.setNodeState(ctx, lc.Join, node.Waiting)
	e.setNodeState(ctx, lc.Body, node.Waiting)
	lc.Loop.SetErr(err)
	e.setNodeState(ctx, lc.Loop, node.Failed)

	if isTransient(err) {
		logger.Warn("Loop iteration failed.", "error", err, "retries_used", e.retries.Count(lc.Loop.ID))
	} else if e.State() != Stopped && ctx.Err() == nil {
		logger.Error("❌ Loop failed with a fatal fault.", "error", err)
		select {
		case e.faults <- asFatal(lc.Loop.ID, err):
		default:
		}
	}
	e.signal()
}

// abandonLoop returns the construct to Waiting when the run ends mid
// fan-out.
func (e *Executor) abandonLoop(ctx context.Context, lc *graph.LoopConstruct) {
	ctxlog.FromContext(ctx).Info("Loop fan-out abandoned.")
	e.setNodeState(ctx, lc.Join, node.Waiting)
	e.setNodeState(ctx, lc.Body, node.Waiting)
	e.setNodeState(ctx, lc.Loop, node.Waiting)
}
