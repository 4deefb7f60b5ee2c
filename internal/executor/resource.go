package executor

import (
	"context"
	"errors"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/resource"
	"github.com/zclconf/go-cty/cty"
)

// provider resolves the provider of h and checks its credentials before
// any lifecycle call.
func (e *Executor) provider(ctx context.Context, h resource.Handle) (resource.Provider, error) {
	prov, err := e.opts.Providers.Lookup(h.Provider)
	if err != nil {
		return nil, err
	}
	if err := prov.CheckCredentials(ctx); err != nil {
		return nil, &resource.Fault{Provider: h.Provider, Err: err}
	}
	return prov, nil
}

func (e *Executor) runResourceStart(ctx context.Context, n *node.Node) error {
	h := resource.HandleFrom(n.Config.Resource)
	if _, err := e.provider(ctx, h); err != nil {
		return err
	}
	if h.InstanceID == "" {
		return &resource.Fault{Provider: h.Provider, Err: errors.New("instance_id is required")}
	}

	sys := invoker.NewSystem(n.ID)
	sys.SetOutput(node.InstancePort, cty.StringVal(h.InstanceID))
	e.complete(ctx, n, sys)
	ctxlog.FromContext(ctx).Info("Resource ready.", "provider", h.Provider, "instance", h.InstanceID)
	return nil
}

func (e *Executor) runResourceStop(ctx context.Context, n *node.Node) error {
	if len(n.Inputs) == 0 {
		return structural(n.ID, "resource handle input is missing")
	}
	v, err := e.inputValue(n, n.Inputs[0])
	if err != nil {
		return err
	}
	id, err := ctyutil.AsString(v)
	if err != nil {
		return structural(n.ID, "resource handle: %w", err)
	}

	cfg := n.Config.Resource
	if src := n.Inputs[0].Source.Owner; cfg == nil && src.Kind == node.ResourceStart {
		cfg = src.Config.Resource
	}
	h := resource.HandleFrom(cfg)
	h.InstanceID = id

	prov, err := e.provider(ctx, h)
	if err != nil {
		return err
	}
	if err := prov.Terminate(ctx, h); err != nil {
		return &invoker.Fault{Operation: "terminate " + id, Err: err}
	}

	sys := invoker.NewSystem(n.ID)
	sys.SetOutput(node.InstancePort, cty.StringVal(id))
	e.complete(ctx, n, sys)
	ctxlog.FromContext(ctx).Info("Resource terminated.", "provider", h.Provider, "instance", id)
	return nil
}
