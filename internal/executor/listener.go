package executor

import (
	"context"

	"github.com/specialistvlad/gridflow/internal/node"
)

// Listener observes every node state change and every execution state
// change. Callbacks may arrive from the interpreter loop and from loop
// fan-out workers concurrently.
type Listener interface {
	NodeStateChanged(ctx context.Context, id string, from, to node.State)
	ExecutionStateChanged(ctx context.Context, from, to State)
}

type listeners []Listener

func (ls listeners) NodeStateChanged(ctx context.Context, id string, from, to node.State) {
	for _, l := range ls {
		l.NodeStateChanged(ctx, id, from, to)
	}
}

func (ls listeners) ExecutionStateChanged(ctx context.Context, from, to State) {
	for _, l := range ls {
		l.ExecutionStateChanged(ctx, from, to)
	}
}
