package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrRetryExhausted is returned when a node failed on every allowed
	// attempt and the run stopped instead of continuing silently.
	ErrRetryExhausted = errors.New("retry budget exhausted")
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("executor is already running")
	// ErrInvalidTransition is returned by controls that do not apply to the
	// current execution state.
	ErrInvalidTransition = errors.New("invalid execution state transition")
	// ErrUnknownNode is returned by controls naming a node not in the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// StructuralError is an authoring fault: an unresolved input, a malformed
// condition, an empty loop source or a malformed join. It is never retried
// and ends the run.
type StructuralError struct {
	Node string
	Err  error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(node string, format string, args ...any) error {
	return &StructuralError{Node: node, Err: fmt.Errorf(format, args...)}
}
