package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/gridflow/internal/control"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/metrics"
	"github.com/zclconf/go-cty/cty"
)

// Run builds the selected workflow and executes it until it ends. In
// interactive mode the run only ends when it is stopped through the control
// surface or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	wf, err := a.model.Workflow(a.cfg.Workflow)
	if err != nil {
		return err
	}
	g, err := graph.Build(ctx, wf)
	if err != nil {
		return fmt.Errorf("failed to build workflow graph: %w", err)
	}
	a.logger.Debug("Workflow graph built.", "workflow", g.Name(), "node_count", len(g.Nodes()))

	services, operations := a.registry.Names()
	a.logger.Info("Services registered:", "count", len(services), "keys", services)
	a.logger.Info("Operations registered:", "count", len(operations), "keys", operations)

	notifier, closeNotifier, err := a.notifier(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up notifications: %w", err)
	}
	defer closeNotifier()

	providers, err := a.providers(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up resource providers: %w", err)
	}
	objects, err := a.objects(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up S3 inputs: %w", err)
	}

	promReg := prometheus.NewRegistry()
	m, err := metrics.New(promReg)
	if err != nil {
		return err
	}

	exec := executor.New(g, executor.Options{
		Interactive:  a.cfg.Interactive,
		PollInterval: a.cfg.PollInterval,
		MaxRetry:     a.cfg.MaxRetry,
		Inputs:       bindInputs(a.cfg.Inputs),
		Library:      a.model,
		Factory:      invoker.NewFactory(a.registry, nil),
		Providers:    providers,
		Objects:      objects,
		Notifier:     notifier,
		Listeners:    []executor.Listener{m},
	})
	defer exec.Close()

	if a.cfg.ControlAddr != "" {
		var metricsHandler http.Handler
		if a.cfg.Metrics {
			metricsHandler = metrics.Handler(promReg)
		}
		stop := a.serveControl(ctx, control.New(ctx, exec, metricsHandler))
		defer stop()
	}

	a.logger.Info("🚀 Starting workflow execution...", "workflow", g.Name())
	run, err := exec.Start(ctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if err := run.Wait(); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	outputs := make(map[string]any, len(run.Outputs()))
	for name, v := range run.Outputs() {
		outputs[name] = ctyutil.ForLogs(v)
	}
	a.logger.Info("🏁 Execution finished.", "run_id", run.ID, "outputs", outputs)
	return nil
}

// serveControl runs the control server in the background and returns a
// function that shuts it down and waits for it.
func (a *App) serveControl(ctx context.Context, srv *control.Server) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(ctx, a.cfg.ControlAddr); err != nil {
			a.logger.Error("Control server failed.", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// bindInputs turns command-line bindings into string values. The executor
// converts them to the Input node's declared type.
func bindInputs(in map[string]string) map[string]cty.Value {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]cty.Value, len(in))
	for name, v := range in {
		out[name] = cty.StringVal(v)
	}
	return out
}
