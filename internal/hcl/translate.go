// This file contains the logic for translating HCL schema structs (from
// schema.go) into the format-agnostic configuration model defined in the
// config package.

package hcl

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// translateWorkflow converts a `workflow` block into the agnostic model.
func (l *Loader) translateWorkflow(ctx context.Context, w *Workflow) (*config.Workflow, error) {
	out := &config.Workflow{Name: w.Name, Description: w.Description}
	for _, n := range w.Nodes {
		cn, err := l.translateNode(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", w.Name, err)
		}
		out.Nodes = append(out.Nodes, cn)
	}
	return out, nil
}

func (l *Loader) translateNode(ctx context.Context, n *Node) (*config.Node, error) {
	logger := ctxlog.FromContext(ctx).With("node_kind", n.Kind, "node_name", n.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL node to internal config model.")

	cn := &config.Node{
		Kind:       n.Kind,
		Name:       n.Name,
		Operation:  n.Operation,
		Endpoint:   n.Endpoint,
		Workflow:   n.Workflow,
		Condition:  n.Condition,
		Breakpoint: n.Breakpoint,
		DependsOn:  n.DependsOn,
		Value:      n.Value,
	}
	if cn.Value == nil {
		cn.Value = n.Default
	}

	if isExprDefined(ctx, n.Type, "type") {
		ty, err := typeExprToCtyType(ctx, n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		cn.Type = ty
	}

	for _, p := range n.Inputs {
		port, err := translatePort(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("node %q, input %q: %w", n.Name, p.Name, err)
		}
		cn.Inputs = append(cn.Inputs, port)
	}
	for _, p := range n.Outputs {
		port, err := translatePort(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("node %q, output %q: %w", n.Name, p.Name, err)
		}
		cn.Outputs = append(cn.Outputs, port)
	}

	if isExprDefined(ctx, n.From, "from") {
		if len(cn.Inputs) > 0 {
			return nil, fmt.Errorf("node %q: `from` cannot be combined with input blocks", n.Name)
		}
		ref, err := portRef(n.From)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		cn.Inputs = []*config.Port{{Name: shorthandInput(n.Kind), From: ref, Type: cn.Type}}
	}

	if n.Resource != nil {
		cn.Resource = &config.Resource{
			Provider:     n.Resource.Provider,
			InstanceID:   n.Resource.InstanceID,
			ImageID:      n.Resource.ImageID,
			InstanceType: n.Resource.InstanceType,
			Region:       n.Resource.Region,
		}
	}
	if n.S3 != nil {
		cn.S3 = &config.S3Object{Bucket: n.S3.Bucket, Key: n.S3.Key, Region: n.S3.Region}
	}
	return cn, nil
}

func translatePort(ctx context.Context, p *Port) (*config.Port, error) {
	port := &config.Port{Name: p.Name}
	if isExprDefined(ctx, p.Type, "type") {
		ty, err := typeExprToCtyType(ctx, p.Type)
		if err != nil {
			return nil, err
		}
		port.Type = ty
	}
	if isExprDefined(ctx, p.From, "from") {
		ref, err := portRef(p.From)
		if err != nil {
			return nil, err
		}
		port.From = ref
	}
	return port, nil
}

// shorthandInput names the single input port created by a node-level `from`.
func shorthandInput(kind string) string {
	switch strings.ToLower(kind) {
	case "loop":
		return "items"
	case "resource_stop":
		return "instance"
	}
	return "value"
}

// portRef turns `node.port` traversals or "node.port" strings into a
// reference string.
func portRef(expr hcl.Expression) (string, error) {
	if trav, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		var parts []string
		for _, step := range trav {
			switch s := step.(type) {
			case hcl.TraverseRoot:
				parts = append(parts, s.Name)
			case hcl.TraverseAttr:
				parts = append(parts, s.Name)
			default:
				return "", fmt.Errorf("unsupported reference %s: only node.port is allowed", expr.Range())
			}
		}
		if len(parts) > 2 {
			return "", fmt.Errorf("reference %q has too many parts", strings.Join(parts, "."))
		}
		return strings.Join(parts, "."), nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("invalid port reference: %w", diags)
	}
	if val.IsNull() || !val.Type().Equals(cty.String) {
		return "", fmt.Errorf("port reference must be node.port or a string")
	}
	return val.AsString(), nil
}

// isExprDefined checks if an HCL expression was actually present in the source
// code. The decoder populates omitted optional expression fields with
// zero-width placeholder expressions, so a nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.", "attribute", attrName, "is_defined", defined)
	return defined
}
