package invoker

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/registry"
)

// LocalInvoker calls a service registered in the local registry with named
// inputs and outputs.
type LocalInvoker struct {
	values
	reg *registry.Registry
	fn  registry.ServiceFunc
}

// NewLocal creates a LocalInvoker resolving services from reg.
func NewLocal(reg *registry.Registry) *LocalInvoker {
	return &LocalInvoker{values: newValues(), reg: reg}
}

// Configure resolves the service. An unknown name is a configuration error,
// not a fault.
func (l *LocalInvoker) Configure(op Operation) error {
	fn, ok := l.reg.Service(op.Name)
	if !ok {
		return fmt.Errorf("service %q is not registered", op.Name)
	}
	l.fn = fn
	return l.values.Configure(op)
}

func (l *LocalInvoker) Invoke(ctx context.Context) error {
	op, in := l.snapshot()
	if l.fn == nil {
		return fmt.Errorf("invoker for %q is not configured", op.Name)
	}
	raw, err := l.fn(ctx, in)
	if err != nil {
		return &Fault{Operation: op.Name, Err: err}
	}
	out, err := conformOutputs(op, raw)
	if err != nil {
		return &Fault{Operation: op.Name, Err: err}
	}
	l.complete(out)
	return nil
}
