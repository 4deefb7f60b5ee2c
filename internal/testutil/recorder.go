package testutil

import (
	"context"
	"sync"

	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/notify"
)

// Notifier records every published event in order.
type Notifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *Notifier) Publish(_ context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (n *Notifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// Types returns the recorded event types, skipping node progress events.
func (n *Notifier) Types() []notify.EventType {
	var out []notify.EventType
	for _, ev := range n.Events() {
		if ev.Type != notify.NodeProgress {
			out = append(out, ev.Type)
		}
	}
	return out
}

// NodeTransition is one recorded node state change.
type NodeTransition struct {
	Node     string
	From, To node.State
}

// Listener records node and execution state changes. OnExecution, when
// set, is called after each execution state change is recorded.
type Listener struct {
	OnExecution func(from, to executor.State)
	OnNode      func(id string, from, to node.State)

	mu         sync.Mutex
	nodes      []NodeTransition
	executions []executor.State
}

func (l *Listener) NodeStateChanged(_ context.Context, id string, from, to node.State) {
	l.mu.Lock()
	l.nodes = append(l.nodes, NodeTransition{Node: id, From: from, To: to})
	hook := l.OnNode
	l.mu.Unlock()
	if hook != nil {
		hook(id, from, to)
	}
}

func (l *Listener) ExecutionStateChanged(_ context.Context, from, to executor.State) {
	l.mu.Lock()
	l.executions = append(l.executions, to)
	hook := l.OnExecution
	l.mu.Unlock()
	if hook != nil {
		hook(from, to)
	}
}

// Transitions returns the recorded node state changes.
func (l *Listener) Transitions() []NodeTransition {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]NodeTransition(nil), l.nodes...)
}

// States returns every execution state entered, in order.
func (l *Listener) States() []executor.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]executor.State(nil), l.executions...)
}

// Count returns how often node id entered state to.
func (l *Listener) Count(id string, to node.State) int {
	count := 0
	for _, tr := range l.Transitions() {
		if tr.Node == id && tr.To == to {
			count++
		}
	}
	return count
}
