package scheduler

import (
	"context"
	"testing"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func in(name, from string) *config.Port { return &config.Port{Name: name, From: from} }
func out(name string) *config.Port       { return &config.Port{Name: name} }

// branchGraph is n -> check -> {a (true), b (false)} -> join -> y.
func branchGraph(t *testing.T) *graph.Graph {
	t.Helper()
	def := &config.Workflow{Name: "branch", Nodes: []*config.Node{
		{Kind: "input", Name: "n"},
		{Kind: "conditional", Name: "check", Condition: "$0 > 2", Inputs: []*config.Port{in("n", "n")}},
		{Kind: "service_call", Name: "a", Operation: "a", DependsOn: []string{"check.true"},
			Inputs: []*config.Port{in("value", "n")}, Outputs: []*config.Port{out("result")}},
		{Kind: "service_call", Name: "b", Operation: "b", DependsOn: []string{"check.false"},
			Inputs: []*config.Port{in("value", "n")}, Outputs: []*config.Port{out("result")}},
		{Kind: "conditional_join", Name: "join",
			Inputs: []*config.Port{in("result", "a.result"), in("alt", "b.result")}},
		{Kind: "output", Name: "y", Inputs: []*config.Port{in("value", "join.result")}},
	}}
	g, err := graph.Build(context.Background(), def)
	require.NoError(t, err)
	return g
}

func get(t *testing.T, g *graph.Graph, id string) *node.Node {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %q", id)
	return n
}

func ids(nodes []*node.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// finishConditional marks the conditional Finished with the given branch.
func finishConditional(t *testing.T, g *graph.Graph, branch bool) {
	t.Helper()
	check := get(t, g, "check")
	tp, _ := check.ControlOutPort(node.ControlTrue)
	fp, _ := check.ControlOutPort(node.ControlFalse)
	tp.SetConditionMet(branch)
	fp.SetConditionMet(!branch)
	check.SetState(node.Finished)
}

func TestScheduler_BranchReadiness(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	g := branchGraph(t)
	s := New(g, NewRetryCounter(MaxRetry))
	get(t, g, "n").SetState(node.Finished)

	// --- Act / Assert: only the conditional is ready ---
	assert.Equal(t, []string{"check"}, ids(s.Ready()))
	assert.Equal(t, 4, s.Remaining())

	// The true branch is taken.
	finishConditional(t, g, true)
	assert.Equal(t, []string{"a"}, ids(s.Ready()))
	assert.True(t, s.Unreachable(get(t, g, "b")))
	assert.False(t, s.Unreachable(get(t, g, "join")))
	assert.Equal(t, 2, s.Remaining(), "a and join are left")

	get(t, g, "a").SetState(node.Finished)
	assert.Equal(t, []string{"join"}, ids(s.Ready()))

	get(t, g, "join").SetState(node.Finished)
	assert.Empty(t, s.Ready(), "outputs are never dispatched")
	assert.Zero(t, s.Remaining())
}

func TestScheduler_FalseBranch(t *testing.T) {
	t.Parallel()

	g := branchGraph(t)
	s := New(g, nil)
	get(t, g, "n").SetState(node.Finished)
	finishConditional(t, g, false)

	assert.Equal(t, []string{"b"}, ids(s.Ready()))
	assert.True(t, s.Unreachable(get(t, g, "a")))
}

func TestScheduler_JoinWithBothSidesFinishedIsReady(t *testing.T) {
	t.Parallel()

	g := branchGraph(t)
	s := New(g, nil)
	for _, id := range []string{"n", "check", "a", "b"} {
		get(t, g, id).SetState(node.Finished)
	}
	assert.Equal(t, []string{"join"}, ids(s.Ready()))
}

func TestScheduler_FailedNodeRetryBudget(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	g := branchGraph(t)
	budget := NewRetryCounter(MaxRetry)
	s := New(g, budget)
	get(t, g, "n").SetState(node.Finished)
	finishConditional(t, g, true)
	a := get(t, g, "a")
	a.SetState(node.Failed)

	// --- Act / Assert ---
	assert.Equal(t, []string{"a"}, ids(s.Ready()))
	assert.Equal(t, 1, budget.Record("a"))
	assert.Equal(t, 2, budget.Record("a"))
	assert.Empty(t, s.Ready(), "budget exhausted")
	assert.Equal(t, 1, s.Remaining(), "only the join is still reachable")

	budget.Reset("a")
	assert.Equal(t, []string{"a"}, ids(s.Ready()))
}

func TestScheduler_NonRetryableFailedNodeIsNotReady(t *testing.T) {
	t.Parallel()

	g := branchGraph(t)
	s := New(g, NewRetryCounter(MaxRetry))
	get(t, g, "n").SetState(node.Finished)
	get(t, g, "check").SetState(node.Failed)

	assert.Empty(t, s.Ready())
}

func TestScheduler_LoopMembersAreOwnedByTheLoop(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	def := &config.Workflow{Name: "loop", Nodes: []*config.Node{
		{Kind: "input", Name: "items"},
		{Kind: "loop", Name: "each", Inputs: []*config.Port{in("items", "items")}},
		{Kind: "service_call", Name: "upper", Operation: "upper",
			Inputs: []*config.Port{in("value", "each.item")}, Outputs: []*config.Port{out("result")}},
		{Kind: "loop_join", Name: "collect", Inputs: []*config.Port{in("results", "upper.result")}},
	}}
	g, err := graph.Build(context.Background(), def)
	require.NoError(t, err)
	s := New(g, nil)
	get(t, g, "items").SetState(node.Finished)

	// --- Act / Assert ---
	assert.Equal(t, []string{"each"}, ids(s.Ready()))

	// Even with the loop Finished the body is never generically ready.
	get(t, g, "each").SetState(node.Finished)
	assert.Empty(t, s.Ready())
	assert.Equal(t, 2, s.Remaining())
}

func TestRetryCounter(t *testing.T) {
	t.Parallel()

	c := NewRetryCounter(1)
	assert.Equal(t, 1, c.Max())
	assert.True(t, c.CanRetry("x"))
	c.Record("x")
	assert.False(t, c.CanRetry("x"))
	assert.Equal(t, 1, c.Count("x"))
	c.ResetAll()
	assert.Zero(t, c.Count("x"))
}

func TestScheduler_LoopWaitsForFixedBodyInputs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	def := &config.Workflow{Name: "loop", Nodes: []*config.Node{
		{Kind: "input", Name: "items"},
		{Kind: "input", Name: "prefix"},
		{Kind: "service_call", Name: "prep", Operation: "upper",
			Inputs: []*config.Port{in("value", "prefix")}, Outputs: []*config.Port{out("result")}},
		{Kind: "loop", Name: "each", Inputs: []*config.Port{in("items", "items")}},
		{Kind: "service_call", Name: "body", Operation: "concat",
			Inputs:  []*config.Port{in("a", "prep.result"), in("b", "each.item")},
			Outputs: []*config.Port{out("result")}},
		{Kind: "loop_join", Name: "collect", Inputs: []*config.Port{in("results", "body.result")}},
	}}
	g, err := graph.Build(context.Background(), def)
	require.NoError(t, err)
	s := New(g, nil)
	get(t, g, "items").SetState(node.Finished)
	get(t, g, "prefix").SetState(node.Finished)

	// --- Act / Assert ---
	assert.Equal(t, []string{"prep"}, ids(s.Ready()))
	get(t, g, "prep").SetState(node.Finished)
	assert.Equal(t, []string{"each"}, ids(s.Ready()))
}

// gatedLoopGraph is a loop whose body only runs on the false branch of
// check.
func gatedLoopGraph(t *testing.T) *graph.Graph {
	t.Helper()
	def := &config.Workflow{Name: "gated", Nodes: []*config.Node{
		{Kind: "input", Name: "n"},
		{Kind: "input", Name: "items"},
		{Kind: "conditional", Name: "check", Condition: "$0 > 2", Inputs: []*config.Port{in("n", "n")}},
		{Kind: "loop", Name: "each", Inputs: []*config.Port{in("items", "items")}},
		{Kind: "service_call", Name: "upper", Operation: "upper", DependsOn: []string{"check.false"},
			Inputs: []*config.Port{in("value", "each.item")}, Outputs: []*config.Port{out("result")}},
		{Kind: "loop_join", Name: "collect", Inputs: []*config.Port{in("results", "upper.result")}},
	}}
	g, err := graph.Build(context.Background(), def)
	require.NoError(t, err)
	return g
}

func TestScheduler_GatedLoopBody(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		branch        bool
		wantReady     []string
		wantRemaining int
	}{
		{name: "untaken branch prunes the whole construct", branch: true, wantReady: nil, wantRemaining: 0},
		{name: "taken branch releases the loop", branch: false, wantReady: []string{"each"}, wantRemaining: 3},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			g := gatedLoopGraph(t)
			s := New(g, nil)
			get(t, g, "n").SetState(node.Finished)
			get(t, g, "items").SetState(node.Finished)

			// --- Act ---
			finishConditional(t, g, tc.branch)

			// --- Assert ---
			assert.Equal(t, tc.wantReady, nilIfEmpty(ids(s.Ready())))
			assert.Equal(t, tc.wantRemaining, s.Remaining())
			assert.Equal(t, tc.branch, s.Unreachable(get(t, g, "each")))
			assert.Equal(t, tc.branch, s.Unreachable(get(t, g, "collect")))
		})
	}
}

func TestScheduler_LoopWithUnreachableFixedInput(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	def := &config.Workflow{Name: "gated", Nodes: []*config.Node{
		{Kind: "input", Name: "n"},
		{Kind: "input", Name: "items"},
		{Kind: "conditional", Name: "check", Condition: "$0 > 2", Inputs: []*config.Port{in("n", "n")}},
		{Kind: "service_call", Name: "prep", Operation: "upper", DependsOn: []string{"check.true"},
			Inputs: []*config.Port{in("value", "n")}, Outputs: []*config.Port{out("result")}},
		{Kind: "loop", Name: "each", Inputs: []*config.Port{in("items", "items")}},
		{Kind: "service_call", Name: "body", Operation: "concat",
			Inputs:  []*config.Port{in("a", "prep.result"), in("b", "each.item")},
			Outputs: []*config.Port{out("result")}},
		{Kind: "loop_join", Name: "collect", Inputs: []*config.Port{in("results", "body.result")}},
	}}
	g, err := graph.Build(context.Background(), def)
	require.NoError(t, err)
	s := New(g, nil)
	get(t, g, "n").SetState(node.Finished)
	get(t, g, "items").SetState(node.Finished)

	// --- Act ---
	finishConditional(t, g, false)

	// --- Assert ---
	assert.True(t, s.Unreachable(get(t, g, "prep")))
	assert.True(t, s.Unreachable(get(t, g, "each")))
	assert.Zero(t, s.Remaining())
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
