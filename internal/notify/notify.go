package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
)

// EventType names a lifecycle event.
type EventType string

const (
	WorkflowStarted    EventType = "workflow_started"
	PartialResult      EventType = "partial_result"
	WorkflowTerminated EventType = "workflow_terminated"
	NodeProgress       EventType = "node_progress"
)

// Event is one notification. Names and Values are parallel slices; values
// are plain Go values (string, float64, bool, []any, map[string]any).
type Event struct {
	Type     EventType `json:"type"`
	RunID    string    `json:"run_id"`
	Workflow string    `json:"workflow"`
	Names    []string  `json:"names,omitempty"`
	Values   []any     `json:"values,omitempty"`
	NodeID   string    `json:"node_id,omitempty"`
	State    string    `json:"state,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// Value returns the value published under name.
func (e Event) Value(name string) (any, bool) {
	for i, n := range e.Names {
		if n == name && i < len(e.Values) {
			return e.Values[i], true
		}
	}
	return nil, false
}

// Notifier publishes events.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Log writes events to the context logger.
type Log struct{}

func (Log) Publish(ctx context.Context, ev Event) error {
	logger := ctxlog.FromContext(ctx)
	switch ev.Type {
	case NodeProgress:
		logger.Debug("Node progress.", "run_id", ev.RunID, "node", ev.NodeID, "state", ev.State)
	default:
		logger.Info("Workflow event.", "type", ev.Type, "run_id", ev.RunID, "workflow", ev.Workflow, "names", ev.Names, "values", ev.Values)
	}
	return nil
}

// Multi publishes to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
