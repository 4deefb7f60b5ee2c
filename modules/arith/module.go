// Package arith provides numeric services and operations for workflows.
package arith

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module's services and operations.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterService("double", double)
	r.RegisterOperation("add", Add)
	r.RegisterOperation("sum", Sum)
}

// double multiplies `value` by two. String inputs produce string results
// so text-typed workflows stay text-typed.
func double(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
	v, ok := in["value"]
	if !ok || v.IsNull() {
		return nil, fmt.Errorf("missing input 'value'")
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return nil, fmt.Errorf("input 'value' is not numeric: %w", err)
	}
	res := n.Multiply(cty.NumberIntVal(2))
	if v.Type() == cty.String {
		res, err = convert.Convert(res, cty.String)
		if err != nil {
			return nil, err
		}
	}
	return map[string]cty.Value{"result": res}, nil
}

// Add returns a + b.
func Add(a, b float64) float64 {
	return a + b
}

// Sum adds every element of vals.
func Sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}
