package invoker

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// DefaultResultPort receives the result of a DynamicInvoker when the node
// declares no output ports.
const DefaultResultPort = "result"

// DynamicInvoker calls a registered Go function by name. Inputs are passed
// positionally in declaration order after conversion to their declared
// types; the single result lands on the first declared output.
type DynamicInvoker struct {
	values
	reg *registry.Registry
}

// NewDynamic creates a DynamicInvoker resolving operations from reg.
func NewDynamic(reg *registry.Registry) *DynamicInvoker {
	return &DynamicInvoker{values: newValues(), reg: reg}
}

func (d *DynamicInvoker) Configure(op Operation) error {
	params, err := d.reg.ParamTypes(op.Name)
	if err != nil {
		return err
	}
	if len(params) != len(op.Inputs) {
		return fmt.Errorf("operation %q takes %d arguments, node declares %d inputs", op.Name, len(params), len(op.Inputs))
	}
	return d.values.Configure(op)
}

func (d *DynamicInvoker) Invoke(ctx context.Context) error {
	op, in := d.snapshot()

	args := make([]cty.Value, len(op.Inputs))
	for i, p := range op.Inputs {
		v, ok := in[p.Name]
		if !ok {
			return fmt.Errorf("argument %q of %q was not set", p.Name, op.Name)
		}
		if p.Type != cty.NilType && p.Type != cty.DynamicPseudoType {
			conv, err := convert.Convert(v, p.Type)
			if err != nil {
				return &Fault{Operation: op.Name, Err: fmt.Errorf("argument %q: %w", p.Name, err)}
			}
			v = conv
		}
		args[i] = v
	}

	res, err := d.reg.CallOperation(ctx, op.Name, args)
	if err != nil {
		return &Fault{Operation: op.Name, Err: err}
	}

	port := DefaultResultPort
	if len(op.Outputs) > 0 {
		op.Outputs = op.Outputs[:1]
		port = op.Outputs[0].Name
	}
	out, err := conformOutputs(op, map[string]cty.Value{port: res})
	if err != nil {
		return &Fault{Operation: op.Name, Err: err}
	}
	d.complete(out)
	return nil
}
