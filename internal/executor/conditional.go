package executor

import (
	"context"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/expr"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// ConditionResultPort carries the evaluated condition of a Conditional.
const ConditionResultPort = node.ResultPort

func (e *Executor) runConditional(ctx context.Context, n *node.Node) error {
	args := make([]cty.Value, 0, len(n.Inputs))
	for _, p := range n.Inputs {
		v, err := e.inputValue(n, p)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	ok, err := expr.Evaluate(n.Config.Condition, args)
	if err != nil {
		return structural(n.ID, "condition %q: %w", n.Config.Condition, err)
	}
	ctxlog.FromContext(ctx).Info("Condition evaluated.", "condition", n.Config.Condition, "result", ok)

	if p, found := n.ControlOutPort(node.ControlTrue); found {
		p.SetConditionMet(ok)
	}
	if p, found := n.ControlOutPort(node.ControlFalse); found {
		p.SetConditionMet(!ok)
	}
	sys := invoker.NewSystem(n.ID)
	sys.SetOutput(ConditionResultPort, cty.BoolVal(ok))
	e.store.Set(n.ID, sys)
	e.setNodeState(ctx, n, node.Finished)
	return nil
}

// runJoin copies the finished side of every input pair to the matching
// output. A pair where both or neither side finished is malformed.
func (e *Executor) runJoin(ctx context.Context, n *node.Node) error {
	sys := invoker.NewSystem(n.ID)
	for k := 0; k+1 < len(n.Inputs); k += 2 {
		a, b := n.Inputs[k], n.Inputs[k+1]
		aDone := a.Source != nil && a.Source.Owner.State() == node.Finished
		bDone := b.Source != nil && b.Source.Owner.State() == node.Finished

		var taken *node.DataPort
		switch {
		case aDone && bDone:
			return structural(n.ID, "both %q and %q are present", a.Name, b.Name)
		case aDone:
			taken = a
		case bDone:
			taken = b
		default:
			return structural(n.ID, "neither %q nor %q is present", a.Name, b.Name)
		}

		v, err := e.inputValue(n, taken)
		if err != nil {
			return err
		}
		sys.SetOutput(n.Outputs[k/2].Name, v)
		ctxlog.FromContext(ctx).Debug("Join resolved pair.", "output", n.Outputs[k/2].Name, "from", taken.Source.String())
	}
	e.complete(ctx, n, sys)
	return nil
}
