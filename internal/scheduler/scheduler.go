package scheduler

import (
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/node"
)

// Scheduler evaluates readiness over one graph instance. It only reads node
// state; every state change is made by the executor.
type Scheduler struct {
	g      *graph.Graph
	budget Budget
}

// New creates a Scheduler for the given graph. A nil budget forbids retries.
func New(g *graph.Graph, budget Budget) *Scheduler {
	if budget == nil {
		budget = NewRetryCounter(0)
	}
	return &Scheduler{g: g, budget: budget}
}

// Ready returns the nodes that may be dispatched now, in graph order.
func (s *Scheduler) Ready() []*node.Node {
	var ready []*node.Node
	for _, n := range s.g.Nodes() {
		if s.IsReady(n) {
			ready = append(ready, n)
		}
	}
	return ready
}

// IsReady reports whether n may be dispatched now.
//
// Output nodes and source nodes are never dispatched. LoopJoins and loop
// bodies are owned by their Loop's fan-out and never become ready through
// this evaluator.
func (s *Scheduler) IsReady(n *node.Node) bool {
	if !s.dispatchable(n) {
		return false
	}
	switch n.State() {
	case node.Waiting:
	case node.Failed:
		if !s.retryEligible(n) {
			return false
		}
	default:
		return false
	}
	switch n.Kind {
	case node.ConditionalJoin:
		return JoinReady(n) && ControlReady(n)
	case node.Loop:
		if lc, ok := s.g.LoopConstruct(n.ID); ok && !bodyReady(lc) {
			return false
		}
	}
	return DataReady(n) && ControlReady(n)
}

// bodyReady checks the loop body's inputs other than the ones fed by the
// loop itself, since the fan-out holds them fixed across iterations.
func bodyReady(lc *graph.LoopConstruct) bool {
	for _, p := range lc.Body.Inputs {
		if p.Source != nil && p.Source.Owner == lc.Loop {
			continue
		}
		if p.Source == nil || p.Source.Owner.State() != node.Finished {
			return false
		}
	}
	return ControlReady(lc.Body)
}

func (s *Scheduler) dispatchable(n *node.Node) bool {
	if n.Kind == node.Output || n.Kind == node.LoopJoin || n.Kind.IsSource() {
		return false
	}
	if lc, ok := s.g.LoopOf(n); ok && lc.Loop != n {
		return false
	}
	return true
}

func (s *Scheduler) retryEligible(n *node.Node) bool {
	return n.Kind.Retryable() && s.budget.CanRetry(n.ID)
}

// DataReady reports whether the source node of every input port is
// Finished.
func DataReady(n *node.Node) bool {
	for _, p := range n.Inputs {
		if p.Source == nil || p.Source.Owner.State() != node.Finished {
			return false
		}
	}
	return true
}

// ControlReady reports whether every incoming control edge has its
// condition met. Nodes without a control-in port are always control-ready.
func ControlReady(n *node.Node) bool {
	if n.ControlIn == nil {
		return true
	}
	for _, src := range n.ControlIn.Sources {
		if !src.ConditionMet() {
			return false
		}
	}
	return true
}

// JoinReady reports whether every (2k, 2k+1) input pair of a
// ConditionalJoin has at least one Finished source. A pair with both
// sources Finished still counts as ready so the dispatcher can reject it.
func JoinReady(n *node.Node) bool {
	for k := 0; k+1 < len(n.Inputs); k += 2 {
		if !finished(n.Inputs[k]) && !finished(n.Inputs[k+1]) {
			return false
		}
	}
	return true
}

func finished(p *node.DataPort) bool {
	return p.Source != nil && p.Source.Owner.State() == node.Finished
}

// Remaining counts the work left in the run: Executing nodes, Failed nodes
// with retry budget, and Waiting nodes that can still be reached. Output
// and source nodes are not counted.
func (s *Scheduler) Remaining() int {
	memo := make(map[*node.Node]bool)
	count := 0
	for _, n := range s.g.Nodes() {
		if n.Kind == node.Output || n.Kind.IsSource() {
			continue
		}
		switch n.State() {
		case node.Executing:
			count++
		case node.Failed:
			if s.retryEligible(n) {
				count++
			}
		case node.Waiting:
			if !s.unreachable(n, memo) {
				count++
			}
		}
	}
	return count
}

// Unreachable reports whether a Waiting node can no longer run in this
// run: one of its control sources finished without meeting its condition,
// or a node it depends on is itself unreachable. A ConditionalJoin is only
// unreachable when both sides of some pair are.
func (s *Scheduler) Unreachable(n *node.Node) bool {
	return s.unreachable(n, make(map[*node.Node]bool))
}

func (s *Scheduler) unreachable(n *node.Node, memo map[*node.Node]bool) bool {
	if v, ok := memo[n]; ok {
		return v
	}
	// Seed the memo so a malformed graph cannot recurse forever.
	memo[n] = false
	v := s.computeUnreachable(n, memo)
	memo[n] = v
	return v
}

func (s *Scheduler) computeUnreachable(n *node.Node, memo map[*node.Node]bool) bool {
	if n.State() != node.Waiting {
		return false
	}
	if n.ControlIn != nil {
		for _, src := range n.ControlIn.Sources {
			owner := src.Owner
			if owner.State() == node.Finished && !src.ConditionMet() {
				return true
			}
			if s.unreachable(owner, memo) {
				return true
			}
		}
	}
	if lc, ok := s.g.LoopOf(n); ok && lc.Body != n && s.bodyUnreachable(lc, memo) {
		return true
	}
	if n.Kind == node.ConditionalJoin {
		for k := 0; k+1 < len(n.Inputs); k += 2 {
			if s.sourceUnreachable(n.Inputs[k], memo) && s.sourceUnreachable(n.Inputs[k+1], memo) {
				return true
			}
		}
		return false
	}
	for _, p := range n.Inputs {
		if s.sourceUnreachable(p, memo) {
			return true
		}
	}
	return false
}

// bodyUnreachable reports whether the loop body can never run: its Loop
// and LoopJoin wait on it, so they share its fate. Only the body's own
// control sources and fixed inputs count; the varying input is fed by the
// Loop itself.
func (s *Scheduler) bodyUnreachable(lc *graph.LoopConstruct, memo map[*node.Node]bool) bool {
	body := lc.Body
	if body.ControlIn != nil {
		for _, src := range body.ControlIn.Sources {
			if src.Owner.State() == node.Finished && !src.ConditionMet() {
				return true
			}
			if src.Owner != lc.Loop && s.unreachable(src.Owner, memo) {
				return true
			}
		}
	}
	for _, p := range body.Inputs {
		if p.Source == nil || p.Source.Owner == lc.Loop {
			continue
		}
		if s.unreachable(p.Source.Owner, memo) {
			return true
		}
	}
	return false
}

func (s *Scheduler) sourceUnreachable(p *node.DataPort, memo map[*node.Node]bool) bool {
	return p.Source != nil && s.unreachable(p.Source.Owner, memo)
}
