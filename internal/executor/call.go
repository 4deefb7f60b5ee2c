package executor

import (
	"context"
	"maps"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/resource"
	"github.com/zclconf/go-cty/cty"
)

// runCall dispatches ServiceCall and DynamicCall nodes.
func (e *Executor) runCall(ctx context.Context, n *node.Node) error {
	inputs, err := e.inputValues(n)
	if err != nil {
		return err
	}
	inv, err := e.invokeCall(ctx, n, inputs)
	if err != nil {
		return err
	}
	e.complete(ctx, n, inv)
	return nil
}

// invokeCall creates a fresh invoker for n, feeds it inputs and blocks on
// the invocation.
func (e *Executor) invokeCall(ctx context.Context, n *node.Node, inputs map[string]cty.Value) (invoker.Invoker, error) {
	op := invoker.OperationFor(n)
	op.Metadata = e.resourceMetadata(n)

	inv, err := e.opts.Factory.New(n.Kind, op)
	if err != nil {
		return nil, structural(n.ID, "%w", err)
	}
	for _, p := range n.Inputs {
		if err := inv.SetInput(p.Name, inputs[p.Name]); err != nil {
			return nil, structural(n.ID, "input %q: %w", p.Name, err)
		}
	}

	ctxlog.FromContext(ctx).Debug("Invoking operation.", "operation", op.Name, "endpoint", op.Endpoint, "metadata", op.Metadata)
	if err := inv.Invoke(ctx); err != nil {
		return nil, err
	}
	return inv, nil
}

// resourceMetadata collects the attributes of the ResourceStart nodes n
// depends on, through either a control or a data edge.
func (e *Executor) resourceMetadata(n *node.Node) map[string]string {
	var starts []*node.Node
	if n.ControlIn != nil {
		for _, src := range n.ControlIn.Sources {
			if src.Owner.Kind == node.ResourceStart {
				starts = append(starts, src.Owner)
			}
		}
	}
	for _, pred := range e.g.Predecessors(n) {
		if pred.Kind == node.ResourceStart {
			starts = append(starts, pred)
		}
	}
	if len(starts) == 0 {
		return nil
	}

	md := make(map[string]string)
	for _, start := range starts {
		maps.Copy(md, resource.HandleFrom(start.Config.Resource).Metadata())
	}
	return md
}
