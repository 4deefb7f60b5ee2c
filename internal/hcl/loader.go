package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load discovers every .hcl file under the given paths, parses all
// `workflow` blocks, and merges them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	model := config.NewModel()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := l.decode(ctx, model, hclFile.Body, file); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL loading complete.", "workflows", model.Names())
	return model, nil
}

// LoadSource parses a single in-memory HCL document. It is mainly used by
// tests and by callers embedding workflow definitions.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	model := config.NewModel()
	if err := l.decode(ctx, model, hclFile.Body, filename); err != nil {
		return nil, err
	}
	return model, nil
}

func (l *Loader) decode(ctx context.Context, model *config.Model, body hcl.Body, file string) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}
	for _, w := range root.Workflows {
		wf, err := l.translateWorkflow(ctx, w)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if err := model.Add(wf); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}
