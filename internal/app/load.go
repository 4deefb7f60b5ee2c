package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/hcl"
	"github.com/specialistvlad/gridflow/internal/yamlloader"
)

// loaders returns every supported definition format. Each one only picks
// up files with its own extensions.
func loaders() []config.Loader {
	return []config.Loader{hcl.NewLoader(), yamlloader.NewLoader()}
}

// loadModel reads all HCL and YAML definitions under path into one model.
// A workflow name may only be defined once across both formats.
func loadModel(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	model := config.NewModel()
	for _, l := range loaders() {
		m, err := l.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, name := range m.Names() {
			if err := model.Add(m.Workflows[name]); err != nil {
				return nil, err
			}
		}
	}
	if len(model.Workflows) == 0 {
		return nil, fmt.Errorf("no workflow definitions found in %s", path)
	}

	logger.Debug("Workflow definitions loaded.", "workflows", model.Names())
	return model, nil
}
