package executor

import (
	"fmt"
)

// Pause suspends dispatching after the node currently being dispatched.
func (e *Executor) Pause() error {
	return e.transition(Paused)
}

// Resume continues a paused or stepping run.
func (e *Executor) Resume() error {
	return e.transition(Running)
}

// Step dispatches exactly one more node, then pauses.
func (e *Executor) Step() error {
	return e.transition(Step)
}

// Stop ends the run at the next node boundary. In-flight invocations are
// not interrupted; nested sub-workflow runs are stopped as well.
func (e *Executor) Stop() error {
	if err := e.transition(Stopped); err != nil {
		return err
	}
	e.mu.Lock()
	children := make([]*Executor, 0, len(e.children))
	for c := range e.children {
		children = append(children, c)
	}
	e.mu.Unlock()
	for _, c := range children {
		_ = c.Stop()
	}
	return nil
}

// SetBreakpoint flags or clears a node as a breakpoint.
func (e *Executor) SetBreakpoint(id string, on bool) error {
	n, ok := e.g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.SetBreakpoint(on)
	return nil
}

// RetryNode gives a node its full retry budget back. A failed node becomes
// eligible for dispatch again once the run is resumed.
func (e *Executor) RetryNode(id string) error {
	if _, ok := e.g.Node(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	e.retries.Reset(id)
	e.signal()
	return nil
}

func (e *Executor) addChild(c *Executor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children[c] = struct{}{}
}

func (e *Executor) removeChild(c *Executor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.children, c)
}
