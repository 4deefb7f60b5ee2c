package executor

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

func (e *Executor) runSubWorkflow(ctx context.Context, n *node.Node) error {
	inputs, err := e.inputValues(n)
	if err != nil {
		return err
	}
	out, err := e.runNested(ctx, n, inputs)
	if err != nil {
		return err
	}
	sys := invoker.NewSystem(n.ID)
	for _, p := range n.Outputs {
		v, ok := out[p.Name]
		if !ok {
			if e.State() == Stopped {
				return context.Canceled
			}
			return structural(n.ID, "sub-workflow %q produced no output %q", n.Config.Workflow, p.Name)
		}
		sys.SetOutput(p.Name, v)
	}
	e.complete(ctx, n, sys)
	return nil
}

// runNested builds a fresh graph for the workflow n references, runs it
// headless with inputs bound by name and returns its outputs.
func (e *Executor) runNested(ctx context.Context, n *node.Node, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	name := n.Config.Workflow
	if name == "" {
		return nil, structural(n.ID, "no workflow referenced")
	}
	if e.opts.Library == nil {
		return nil, structural(n.ID, "no workflow library to resolve %q", name)
	}
	chain := append(slices.Clone(e.ancestry), e.g.Name())
	if slices.Contains(chain, name) {
		return nil, structural(n.ID, "sub-workflow %q references itself through %s",
			name, strings.Join(append(chain, name), " -> "))
	}
	wf, err := e.opts.Library.Workflow(name)
	if err != nil {
		return nil, structural(n.ID, "%w", err)
	}
	g, err := graph.Build(ctx, wf)
	if err != nil {
		return nil, structural(n.ID, "sub-workflow %q: %w", name, err)
	}
	if err := checkBindings(n.ID, g, inputs); err != nil {
		return nil, err
	}

	child := New(g, Options{
		PollInterval: e.opts.PollInterval,
		MaxRetry:     e.opts.MaxRetry,
		LoopWorkers:  e.opts.LoopWorkers,
		Inputs:       inputs,
		Library:      e.opts.Library,
		Factory:      e.opts.Factory,
		Providers:    e.opts.Providers,
		Objects:      e.opts.Objects,
		Notifier:     e.opts.Notifier,
		Tracer:       e.tracer,
	})
	child.ancestry = chain
	e.addChild(child)
	defer e.removeChild(child)

	ctx, logger := ctxlog.With(ctx, "parent_node", n.ID)
	logger.Debug("Starting nested run.", "sub_workflow", name)
	run, err := child.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := run.Wait(); err != nil {
		if errors.Is(err, ErrRetryExhausted) {
			return nil, &invoker.Fault{Operation: name, Err: err}
		}
		return nil, err
	}
	return run.Outputs(), nil
}

// checkBindings rejects bindings that name no Input node and Input nodes
// that are left without a value.
func checkBindings(id string, g *graph.Graph, inputs map[string]cty.Value) error {
	var declared []string
	for _, in := range g.InputNodes() {
		if in.Kind == node.Constant {
			continue
		}
		declared = append(declared, in.ID)
		_, bound := inputs[in.ID]
		if !bound && in.Kind == node.Input && in.Config.Value == nil {
			return structural(id, "sub-workflow input %q is not bound and has no default", in.ID)
		}
	}
	for name := range inputs {
		if !slices.Contains(declared, name) {
			return structural(id, "sub-workflow %q has no input %q", g.Name(), name)
		}
	}
	return nil
}
