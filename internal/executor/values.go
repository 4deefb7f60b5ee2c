package executor

import (
	"context"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/notify"
	"github.com/specialistvlad/gridflow/internal/resource"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// inputValue resolves one input port from the invoker of its source node.
// Failing to resolve is a structural fault.
func (e *Executor) inputValue(n *node.Node, p *node.DataPort) (cty.Value, error) {
	if p.Source == nil {
		return cty.NilVal, structural(n.ID, "input %q is not wired", p.Name)
	}
	inv, ok := e.store.Get(p.Source.Owner.ID)
	if !ok {
		return cty.NilVal, structural(n.ID, "input %q: %s has no value", p.Name, p.Source)
	}
	v, err := inv.Output(p.Source.Name)
	if err != nil {
		return cty.NilVal, structural(n.ID, "input %q: %w", p.Name, err)
	}
	v, err = conform(v, p.Type)
	if err != nil {
		return cty.NilVal, structural(n.ID, "input %q: %w", p.Name, err)
	}
	return v, nil
}

// inputValues resolves every input port of n by name.
func (e *Executor) inputValues(n *node.Node) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(n.Inputs))
	for _, p := range n.Inputs {
		v, err := e.inputValue(n, p)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

func conform(v cty.Value, ty cty.Type) (cty.Value, error) {
	if ty == cty.NilType || ty == cty.DynamicPseudoType {
		return v, nil
	}
	return convert.Convert(v, ty)
}

// resolveSources finishes every Input, Constant and S3Input node with its
// bound, literal or fetched value and publishes WorkflowStarted.
func (e *Executor) resolveSources(ctx context.Context) error {
	var names []string
	var values []any
	for _, n := range e.g.Nodes() {
		if !n.Kind.IsSource() {
			continue
		}
		v, err := e.sourceValue(ctx, n)
		if err != nil {
			return err
		}
		if len(n.Outputs) > 0 {
			if v, err = conform(v, n.Outputs[0].Type); err != nil {
				return structural(n.ID, "value does not match declared type: %w", err)
			}
		}
		sys := invoker.NewSystem(n.ID)
		sys.SetOutput(node.ValuePort, v)
		e.complete(ctx, n, sys)

		if n.Kind != node.Constant {
			names = append(names, n.ID)
			values = append(values, ctyutil.ForLogs(v))
		}
	}
	e.publish(ctx, notify.Event{Type: notify.WorkflowStarted, Names: names, Values: values})
	return nil
}

func (e *Executor) sourceValue(ctx context.Context, n *node.Node) (cty.Value, error) {
	if n.Kind != node.Constant {
		if v, ok := e.opts.Inputs[n.ID]; ok {
			return v, nil
		}
	}
	switch n.Kind {
	case node.S3Input:
		if e.opts.Objects == nil {
			return cty.NilVal, &resource.Fault{Provider: "s3", Err: structural(n.ID, "no object store configured")}
		}
		v, err := e.opts.Objects.Fetch(ctx, n.Config.S3)
		if err != nil {
			return cty.NilVal, &resource.Fault{Provider: "s3", Err: structural(n.ID, "%w", err)}
		}
		return v, nil
	case node.Constant:
		if n.Config.Value == nil {
			return cty.NilVal, structural(n.ID, "constant has no value")
		}
	default:
		if n.Config.Value == nil {
			return cty.NilVal, structural(n.ID, "input has no bound value and no default")
		}
	}
	return *n.Config.Value, nil
}

// publishOutputs reports every Output node whose predecessor has finished
// and that was not reported yet, as one PartialResult event.
func (e *Executor) publishOutputs(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	var names []string
	var values []any
	for _, out := range e.g.OutputNodes() {
		if e.reported[out.ID] || len(out.Inputs) == 0 {
			continue
		}
		p := out.Inputs[0]
		if p.Source == nil || p.Source.Owner.State() != node.Finished {
			continue
		}
		v, err := e.inputValue(out, p)
		if err != nil {
			logger.Warn("Output could not be resolved.", "output", out.ID, "error", err)
			continue
		}
		e.reported[out.ID] = true
		sys := invoker.NewSystem(out.ID)
		sys.SetOutput(node.ValuePort, v)
		e.store.Set(out.ID, sys)
		e.setNodeState(ctx, out, node.Finished)

		names = append(names, out.ID)
		values = append(values, ctyutil.ForLogs(v))
	}
	if len(names) > 0 {
		logger.Info("Publishing outputs.", "outputs", names)
		e.publish(ctx, notify.Event{Type: notify.PartialResult, Names: names, Values: values})
	}
}

// collectOutputs returns the values of all reported Output nodes.
func (e *Executor) collectOutputs() map[string]cty.Value {
	out := make(map[string]cty.Value)
	for _, n := range e.g.OutputNodes() {
		if !e.reported[n.ID] {
			continue
		}
		inv, ok := e.store.Get(n.ID)
		if !ok {
			continue
		}
		if v, err := inv.Output(node.ValuePort); err == nil {
			out[n.ID] = v
		}
	}
	return out
}

func (e *Executor) publish(ctx context.Context, ev notify.Event) {
	ev.RunID = e.runID
	ev.Workflow = e.g.Name()
	ev.Time = time.Now()
	if err := e.opts.Notifier.Publish(ctx, ev); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish notification.", "type", ev.Type, "error", err)
	}
}

func (e *Executor) publishProgress(ctx context.Context, n *node.Node, to node.State) {
	ev := notify.Event{Type: notify.NodeProgress, NodeID: n.ID, State: to.String()}
	if to == node.Failed {
		if err := n.Err(); err != nil {
			ev.Error = err.Error()
		}
	}
	e.publish(ctx, ev)
}
