package invoker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Param is a named, typed port of an operation.
type Param struct {
	Name string
	Type cty.Type
}

// Operation describes what an invoker should call.
type Operation struct {
	// Name is the registered service or operation name.
	Name string
	// Endpoint is the base URL of a remote service. Empty for local calls.
	Endpoint string
	Inputs   []Param
	Outputs  []Param
	// Metadata is attached out-of-band to the call, e.g. the resource a
	// service runs on.
	Metadata map[string]string
}

// Invoker performs one node's operation.
type Invoker interface {
	Configure(op Operation) error
	SetInput(port string, v cty.Value) error
	// Invoke blocks until the operation completes or fails.
	Invoke(ctx context.Context) error
	// Output fails with a *Fault when requested before a successful Invoke.
	Output(port string) (cty.Value, error)
	Outputs() map[string]cty.Value
}

// ErrNotInvoked is wrapped by the Fault returned when outputs are read
// before a successful invocation.
var ErrNotInvoked = errors.New("invoker has not completed an invocation")

// Fault is a transient invocation failure. Nodes failing with a Fault are
// eligible for retry.
type Fault struct {
	Operation string
	Err       error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("invocation of %q failed: %v", f.Operation, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err carries an invocation fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// values is the input/output bookkeeping shared by every variant.
type values struct {
	mu      sync.RWMutex
	op      Operation
	inputs  map[string]cty.Value
	outputs map[string]cty.Value
	invoked bool
}

func newValues() values {
	return values{
		inputs:  make(map[string]cty.Value),
		outputs: make(map[string]cty.Value),
	}
}

func (v *values) Configure(op Operation) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.op = op
	return nil
}

func (v *values) SetInput(port string, val cty.Value) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inputs[port] = val
	return nil
}

func (v *values) Output(port string) (cty.Value, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.invoked {
		return cty.NilVal, &Fault{Operation: v.op.Name, Err: ErrNotInvoked}
	}
	val, ok := v.outputs[port]
	if !ok {
		return cty.NilVal, &Fault{Operation: v.op.Name, Err: fmt.Errorf("no output on port %q (have %v)", port, sortedKeys(v.outputs))}
	}
	return val, nil
}

func (v *values) Outputs() map[string]cty.Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]cty.Value, len(v.outputs))
	for k, val := range v.outputs {
		out[k] = val
	}
	return out
}

// snapshot returns the operation and a copy of the inputs.
func (v *values) snapshot() (Operation, map[string]cty.Value) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	in := make(map[string]cty.Value, len(v.inputs))
	for k, val := range v.inputs {
		in[k] = val
	}
	return v.op, in
}

// complete stores the results of a successful call.
func (v *values) complete(out map[string]cty.Value) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.outputs = out
	v.invoked = true
}

// conformOutputs checks that every declared output is present and converts
// it to its declared type. Undeclared results are kept as they are.
func conformOutputs(op Operation, raw map[string]cty.Value) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(raw))
	for k, val := range raw {
		out[k] = val
	}
	for _, p := range op.Outputs {
		val, ok := raw[p.Name]
		if !ok {
			return nil, fmt.Errorf("result is missing declared output %q", p.Name)
		}
		if p.Type == cty.NilType || p.Type == cty.DynamicPseudoType {
			continue
		}
		conv, err := convert.Convert(val, p.Type)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", p.Name, err)
		}
		out[p.Name] = conv
	}
	return out, nil
}

func sortedKeys(m map[string]cty.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
