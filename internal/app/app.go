package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/registry"
)

// App encapsulates the application's dependencies, configuration and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	registry *registry.Registry
	model    *config.Model
}

// NewApp loads the workflow definitions and registers the given modules,
// or the core modules when none are given. It returns an error when the
// definitions cannot be loaded or a module registers an operation with an
// unsupported signature.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loadModel(ctx, cfg.WorkflowPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow definitions: %w", err)
	}

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		registry: reg,
		model:    model,
	}, nil
}

// Registry returns the application's registry. This is primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded workflow definitions.
func (a *App) Model() *config.Model {
	return a.model
}
