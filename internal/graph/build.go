package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// Build constructs a fresh graph instance from a workflow definition.
func Build(ctx context.Context, wf *config.Workflow) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building workflow graph.", "workflow", wf.Name, "node_count", len(wf.Nodes))

	g := newGraph(wf.Name)
	if err := createNodes(g, wf); err != nil {
		return nil, err
	}
	if err := linkData(g); err != nil {
		return nil, err
	}
	if err := linkControl(g); err != nil {
		return nil, err
	}
	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	if err := validateJoins(g); err != nil {
		return nil, err
	}
	if err := collectLoops(g); err != nil {
		return nil, err
	}

	logger.Debug("Workflow graph built.", "workflow", wf.Name, "edges", len(g.edges), "loops", len(g.loops))
	return g, nil
}

// createNodes instantiates every node with the ports its kind implies.
func createNodes(g *Graph, wf *config.Workflow) error {
	for _, cfg := range wf.Nodes {
		if cfg.Name == "" {
			return fmt.Errorf("workflow %q: node of kind %q has no name", wf.Name, cfg.Kind)
		}
		if strings.Contains(cfg.Name, ".") {
			return fmt.Errorf("workflow %q: node name %q must not contain '.'", wf.Name, cfg.Name)
		}
		if _, exists := g.byID[cfg.Name]; exists {
			return fmt.Errorf("workflow %q: duplicate node %q", wf.Name, cfg.Name)
		}
		kind, err := node.ParseKind(cfg.Kind)
		if err != nil {
			return fmt.Errorf("workflow %q, node %q: %w", wf.Name, cfg.Name, err)
		}

		n := node.New(cfg.Name, kind, cfg)
		switch kind {
		case node.Input, node.Constant, node.S3Input:
			n.AddOutput(node.ValuePort, typeOrAny(cfg.Type))
			n.AddControlOut(node.ControlDone)
		case node.Output:
			if len(cfg.Inputs) != 1 {
				return fmt.Errorf("output node %q must have exactly one source, got %d", cfg.Name, len(cfg.Inputs))
			}
			n.AddInput(node.ValuePort, typeOrAny(cfg.Inputs[0].Type))
		case node.Conditional:
			addDeclaredInputs(n, cfg)
			n.AddOutput(node.ResultPort, cty.Bool)
			n.AddControlOut(node.ControlTrue)
			n.AddControlOut(node.ControlFalse)
		case node.ResourceStart:
			addDeclaredInputs(n, cfg)
			n.AddOutput(node.InstancePort, cty.String)
			n.AddControlOut(node.ControlDone)
		case node.ConditionalJoin:
			if len(cfg.Inputs) == 0 || len(cfg.Inputs)%2 != 0 {
				return fmt.Errorf("conditional join %q needs input ports in (true, false) pairs, got %d inputs", cfg.Name, len(cfg.Inputs))
			}
			addDeclaredInputs(n, cfg)
			if err := addPairedOutputs(n, cfg, len(cfg.Inputs)/2); err != nil {
				return err
			}
			n.AddControlOut(node.ControlDone)
		case node.LoopJoin:
			addDeclaredInputs(n, cfg)
			if err := addPairedOutputs(n, cfg, len(cfg.Inputs)); err != nil {
				return err
			}
			n.AddControlOut(node.ControlDone)
		case node.Loop:
			if len(cfg.Inputs) != 1 {
				return fmt.Errorf("loop %q must have exactly one iteration source, got %d inputs", cfg.Name, len(cfg.Inputs))
			}
			addDeclaredInputs(n, cfg)
			if len(cfg.Outputs) == 0 {
				n.AddOutput("item", cty.DynamicPseudoType)
			} else {
				addDeclaredOutputs(n, cfg)
			}
			n.AddControlOut(node.ControlDone)
		default:
			addDeclaredInputs(n, cfg)
			addDeclaredOutputs(n, cfg)
			n.AddControlOut(node.ControlDone)
		}
		g.addNode(n)
	}
	return nil
}

func addDeclaredInputs(n *node.Node, cfg *config.Node) {
	for _, p := range cfg.Inputs {
		n.AddInput(p.Name, typeOrAny(p.Type))
	}
}

func addDeclaredOutputs(n *node.Node, cfg *config.Node) {
	for _, p := range cfg.Outputs {
		n.AddOutput(p.Name, typeOrAny(p.Type))
	}
}

// addPairedOutputs declares join outputs. When none are authored, output k
// takes the name of the input feeding it (input 2k for conditional joins).
func addPairedOutputs(n *node.Node, cfg *config.Node, want int) error {
	if len(cfg.Outputs) == 0 {
		step := len(cfg.Inputs) / want
		for k := 0; k < want; k++ {
			in := cfg.Inputs[k*step]
			n.AddOutput(in.Name, typeOrAny(in.Type))
		}
		return nil
	}
	if len(cfg.Outputs) != want {
		return fmt.Errorf("%s %q declares %d outputs, expected %d", n.Kind, n.ID, len(cfg.Outputs), want)
	}
	addDeclaredOutputs(n, cfg)
	return nil
}

func typeOrAny(t cty.Type) cty.Type {
	if t == cty.NilType {
		return cty.DynamicPseudoType
	}
	return t
}

// linkData wires every input port to its source output port.
func linkData(g *Graph) error {
	for _, n := range g.nodes {
		for i, p := range n.Inputs {
			ref := n.Config.Inputs[i].From
			if ref == "" {
				return fmt.Errorf("node %q: input %q has no source", n.ID, p.Name)
			}
			src, err := g.resolveOutput(ref)
			if err != nil {
				return fmt.Errorf("node %q, input %q: %w", n.ID, p.Name, err)
			}
			if src.Owner == n {
				return fmt.Errorf("self-referential edge not allowed: %s -> %s", src, p)
			}
			p.Source = src
			g.edges = append(g.edges, Edge{Kind: DataEdge, From: src.Owner, To: n, FromPort: src.Name, ToPort: p.Name})
		}
	}
	return nil
}

func (g *Graph) resolveOutput(ref string) (*node.DataPort, error) {
	id, port, hasPort := strings.Cut(ref, ".")
	src, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("source node not found: %s", id)
	}
	if !hasPort {
		if len(src.Outputs) == 0 {
			return nil, fmt.Errorf("source node %q has no output ports", id)
		}
		return src.Outputs[0], nil
	}
	p, ok := src.Output(port)
	if !ok {
		return nil, fmt.Errorf("node %q has no output port %q", id, port)
	}
	return p, nil
}

// linkControl wires `depends_on` references into control edges.
func linkControl(g *Graph) error {
	for _, n := range g.nodes {
		for _, ref := range n.Config.DependsOn {
			id, port, hasPort := strings.Cut(ref, ".")
			src, ok := g.byID[id]
			if !ok {
				return fmt.Errorf("node %q depends on unknown node %q", n.ID, id)
			}
			if src == n {
				return fmt.Errorf("self-referential edge not allowed: %s -> %s", id, id)
			}
			if !hasPort {
				if src.Kind == node.Conditional {
					return fmt.Errorf("node %q must name a branch of conditional %q (%s.true or %s.false)", n.ID, id, id, id)
				}
				port = node.ControlDone
			}
			cp, ok := src.ControlOutPort(port)
			if !ok {
				return fmt.Errorf("node %q has no control port %q", id, port)
			}
			n.ConnectControl(cp)
			g.edges = append(g.edges, Edge{Kind: ControlEdge, From: src, To: n, FromPort: port, ToPort: "in"})
		}
	}
	return nil
}

// validateJoins checks that the two sides of every conditional join pair
// come from different producers.
func validateJoins(g *Graph) error {
	for _, n := range g.nodes {
		if n.Kind != node.ConditionalJoin {
			continue
		}
		for k := 0; k < len(n.Inputs); k += 2 {
			a, b := n.Inputs[k], n.Inputs[k+1]
			if a.Source.Owner == b.Source.Owner {
				return fmt.Errorf("conditional join %q: inputs %q and %q share source node %q", n.ID, a.Name, b.Name, a.Source.Owner.ID)
			}
		}
	}
	return nil
}

// collectLoops identifies the body and join of every Loop.
func collectLoops(g *Graph) error {
	for _, n := range g.nodes {
		if n.Kind != node.Loop {
			continue
		}
		body, varying, err := g.loopBody(n)
		if err != nil {
			return err
		}
		join, err := g.loopJoin(n, body)
		if err != nil {
			return err
		}
		lc := &LoopConstruct{Loop: n, Body: body, Join: join, VaryingPort: varying}
		for _, member := range []*node.Node{n, body, join} {
			if other, taken := g.member[member.ID]; taken {
				return fmt.Errorf("node %q belongs to loops %q and %q", member.ID, other.Loop.ID, n.ID)
			}
			g.member[member.ID] = lc
		}
		g.loops[n.ID] = lc
	}
	for _, n := range g.nodes {
		if n.Kind != node.LoopJoin {
			continue
		}
		if _, ok := g.member[n.ID]; !ok {
			return fmt.Errorf("loop join %q is not fed by any loop body", n.ID)
		}
	}
	return nil
}

func (g *Graph) loopBody(loop *node.Node) (*node.Node, string, error) {
	var body *node.Node
	var varying string
	for _, e := range g.edges {
		if e.Kind != DataEdge || e.From != loop || e.To.Kind == node.Output {
			continue
		}
		if body != nil && body != e.To {
			return nil, "", fmt.Errorf("loop %q must feed exactly one body node, found %q and %q", loop.ID, body.ID, e.To.ID)
		}
		if body == e.To {
			return nil, "", fmt.Errorf("loop %q feeds more than one port of body %q", loop.ID, body.ID)
		}
		body = e.To
		varying = e.ToPort
	}
	if body == nil {
		return nil, "", fmt.Errorf("loop %q has no body node", loop.ID)
	}
	if body.Kind != node.ServiceCall && body.Kind != node.SubWorkflow {
		return nil, "", fmt.Errorf("loop %q: body %q must be a service_call or sub_workflow, got %s", loop.ID, body.ID, body.Kind)
	}
	return body, varying, nil
}

func (g *Graph) loopJoin(loop, body *node.Node) (*node.Node, error) {
	var join *node.Node
	for _, e := range g.edges {
		if e.Kind != DataEdge || e.From != body || e.To.Kind == node.Output {
			continue
		}
		if e.To.Kind != node.LoopJoin {
			return nil, fmt.Errorf("loop %q: body %q may only feed its loop join or outputs, found %s", loop.ID, body.ID, e.To)
		}
		if join != nil && join != e.To {
			return nil, fmt.Errorf("loop %q: body %q feeds two loop joins (%q, %q)", loop.ID, body.ID, join.ID, e.To.ID)
		}
		join = e.To
	}
	if join == nil {
		return nil, fmt.Errorf("loop %q: body %q does not feed a loop join", loop.ID, body.ID)
	}
	for _, p := range join.Inputs {
		if p.Source.Owner != body {
			return nil, fmt.Errorf("loop join %q: input %q must come from body %q", join.ID, p.Name, body.ID)
		}
	}
	return join, nil
}
