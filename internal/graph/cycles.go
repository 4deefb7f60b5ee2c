package graph

import (
	"fmt"

	"github.com/specialistvlad/gridflow/internal/node"
)

// detectCycles checks the combined data and control edges for cycles. It
// returns an error naming the first node found on a cycle.
func (g *Graph) detectCycles() error {
	dependents := make(map[string][]*node.Node, len(g.nodes))
	for _, e := range g.edges {
		dependents[e.From.ID] = append(dependents[e.From.ID], e.To)
	}

	// permanent: fully visited and known not to be on a cycle.
	// temporary: on the current recursion stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node.Node) error
	visit = func(n *node.Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range dependents[n.ID] {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
