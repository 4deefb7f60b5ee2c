package graph

import (
	"github.com/specialistvlad/gridflow/internal/node"
)

// EdgeKind separates data edges from control edges.
type EdgeKind int

const (
	DataEdge EdgeKind = iota
	ControlEdge
)

func (k EdgeKind) String() string {
	if k == ControlEdge {
		return "control"
	}
	return "data"
}

// Edge connects exactly one source port to one destination port.
type Edge struct {
	Kind EdgeKind
	From *node.Node
	To   *node.Node
	// FromPort and ToPort are port names on From and To.
	FromPort string
	ToPort   string
}

// LoopConstruct groups the three nodes a Loop fan-out owns exclusively.
type LoopConstruct struct {
	Loop *node.Node
	Body *node.Node
	Join *node.Node
	// VaryingPort is the body input port fed by the Loop.
	VaryingPort string
}

// Graph is the structural view of one workflow instance.
type Graph struct {
	name   string
	nodes  []*node.Node
	byID   map[string]*node.Node
	edges  []Edge
	loops  map[string]*LoopConstruct
	member map[string]*LoopConstruct
}

func newGraph(name string) *Graph {
	return &Graph{
		name:   name,
		byID:   make(map[string]*node.Node),
		loops:  make(map[string]*LoopConstruct),
		member: make(map[string]*LoopConstruct),
	}
}

// Name returns the workflow name the graph was built from.
func (g *Graph) Name() string {
	return g.name
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []*node.Node {
	return g.nodes
}

// Node looks a node up by ID.
func (g *Graph) Node(id string) (*node.Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Edges returns every data and control edge.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// InputNodes returns the Input, Constant and S3Input nodes.
func (g *Graph) InputNodes() []*node.Node {
	var out []*node.Node
	for _, n := range g.nodes {
		if n.Kind.IsSource() {
			out = append(out, n)
		}
	}
	return out
}

// OutputNodes returns the Output nodes.
func (g *Graph) OutputNodes() []*node.Node {
	var out []*node.Node
	for _, n := range g.nodes {
		if n.Kind == node.Output {
			out = append(out, n)
		}
	}
	return out
}

// Predecessors returns the distinct nodes feeding n through data edges.
func (g *Graph) Predecessors(n *node.Node) []*node.Node {
	var out []*node.Node
	seen := make(map[string]struct{})
	for _, p := range n.Inputs {
		if p.Source == nil {
			continue
		}
		owner := p.Source.Owner
		if _, ok := seen[owner.ID]; ok {
			continue
		}
		seen[owner.ID] = struct{}{}
		out = append(out, owner)
	}
	return out
}

// Successors returns the distinct nodes consuming n through any edge.
func (g *Graph) Successors(n *node.Node) []*node.Node {
	var out []*node.Node
	seen := make(map[string]struct{})
	for _, e := range g.edges {
		if e.From != n {
			continue
		}
		if _, ok := seen[e.To.ID]; ok {
			continue
		}
		seen[e.To.ID] = struct{}{}
		out = append(out, e.To)
	}
	return out
}

// LoopConstruct returns the construct headed by the given Loop node.
func (g *Graph) LoopConstruct(loopID string) (*LoopConstruct, bool) {
	lc, ok := g.loops[loopID]
	return lc, ok
}

// LoopOf returns the construct a node belongs to, if any. Loop nodes, loop
// bodies and LoopJoins all map to their construct.
func (g *Graph) LoopOf(n *node.Node) (*LoopConstruct, bool) {
	lc, ok := g.member[n.ID]
	return lc, ok
}

// Reset returns every node to Waiting and clears control conditions.
func (g *Graph) Reset() {
	for _, n := range g.nodes {
		n.Reset()
	}
}

func (g *Graph) addNode(n *node.Node) {
	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n
}
