// Package text provides string services and operations for workflows.
package text

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module's services and operations.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterService("upper", mapValue(strings.ToUpper))
	r.RegisterService("lower", mapValue(strings.ToLower))
	r.RegisterService("concat", concat)
	r.RegisterOperation("split", Split)
	r.RegisterOperation("join", Join)
}

// mapValue lifts a string function into a service reading `value` and
// writing `result`.
func mapValue(fn func(string) string) registry.ServiceFunc {
	return func(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
		v, ok := in["value"]
		if !ok {
			return nil, fmt.Errorf("missing input 'value'")
		}
		s, err := ctyutil.AsString(v)
		if err != nil {
			return nil, fmt.Errorf("input 'value': %w", err)
		}
		return map[string]cty.Value{"result": cty.StringVal(fn(s))}, nil
	}
}

// concat joins all inputs ordered by port name.
func concat(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		s, err := ctyutil.AsString(in[name])
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		b.WriteString(s)
	}
	return map[string]cty.Value{"result": cty.StringVal(b.String())}, nil
}

// Split breaks s on sep.
func Split(s, sep string) []string {
	return strings.Split(s, sep)
}

// Join concatenates parts with sep.
func Join(parts []string, sep string) string {
	return strings.Join(parts, sep)
}
