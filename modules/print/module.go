// Package print provides a pass-through service that logs its inputs.
package print

import (
	"context"
	"sort"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Print logs every input and returns them unchanged under the same names.
func Print(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		logger.Info("print", "port", k, "value", ctyutil.ForLogs(in[k]))
	}
	return in, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterService("print", Print)
}
