package invoker

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// SystemInvoker holds values computed by the interpreter itself, so joins,
// conditionals and sub-workflows expose the same Output contract as remote
// calls.
type SystemInvoker struct {
	values
}

// NewSystem creates an empty SystemInvoker.
func NewSystem(name string) *SystemInvoker {
	s := &SystemInvoker{values: newValues()}
	s.op.Name = name
	return s
}

// SetOutput stores a value and marks the invoker as completed.
func (s *SystemInvoker) SetOutput(port string, v cty.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[port] = v
	s.invoked = true
}

// Invoke copies inputs to outputs of the same name.
func (s *SystemInvoker) Invoke(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.inputs {
		s.outputs[k] = v
	}
	s.invoked = true
	return nil
}
