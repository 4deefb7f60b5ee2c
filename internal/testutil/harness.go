package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/hcl"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// LoadHCL parses a workflow source held in a string.
func LoadHCL(t *testing.T, src string) *config.Model {
	t.Helper()
	model, err := hcl.NewLoader().LoadSource(context.Background(), "test.hcl", []byte(src))
	require.NoError(t, err)
	return model
}

// Harness wires an executor over an HCL workflow with recording
// collaborators.
type Harness struct {
	Executor *executor.Executor
	Notifier *Notifier
	Listener *Listener
	Logs     *SafeBuffer
	Ctx      context.Context
}

// NewHarness builds the named workflow of src (the only or "main" one when
// name is empty) and returns an executor ready to start. Options left zero
// get fast test defaults; Library, Factory, Notifier and Listeners are
// always provided by the harness.
func NewHarness(t *testing.T, src, name string, reg *registry.Registry, opts executor.Options) *Harness {
	t.Helper()

	model := LoadHCL(t, src)
	wf, err := model.Workflow(name)
	require.NoError(t, err)

	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	g, err := graph.Build(ctx, wf)
	require.NoError(t, err)

	h := &Harness{Notifier: &Notifier{}, Listener: &Listener{}, Logs: logs, Ctx: ctx}
	if opts.PollInterval == 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	opts.Library = model
	opts.Factory = invoker.NewFactory(reg, nil)
	opts.Notifier = h.Notifier
	opts.Listeners = append(opts.Listeners, h.Listener)
	h.Executor = executor.New(g, opts)

	t.Cleanup(func() {
		_ = h.Executor.Close()
		if os.Getenv("GRIDFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return h
}

// Run runs the workflow to the end and returns its error and outputs.
func (h *Harness) Run(t *testing.T) (map[string]cty.Value, error) {
	t.Helper()
	run, err := h.Executor.Start(h.Ctx)
	if err != nil {
		return nil, err
	}
	select {
	case <-run.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("workflow run did not finish in time")
	}
	return run.Outputs(), run.Wait()
}

// WaitState blocks until the executor reaches want or the deadline passes.
func (h *Harness) WaitState(t *testing.T, want executor.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.Executor.State() == want
	}, 5*time.Second, 5*time.Millisecond, "executor never reached %s", want)
}
