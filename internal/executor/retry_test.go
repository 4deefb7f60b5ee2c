package executor_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/notify"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const flakyWorkflow = `
workflow "main" {
  node "constant" "c" { value = "v" }

  node "service_call" "f" {
    operation = "flaky"
    input "value" { from = c }
    output "result" { type = string }
  }

  node "service_call" "after" {
    operation = "echo"
    input "value" { from = f.result }
    output "result" {}
  }

  node "output" "out" {
    from = f.result
  }
}
`

func TestExecutor_RetryThenSucceed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		failures int
		want     string
	}{
		{name: "first attempt", failures: 0, want: "attempt-1"},
		{name: "one retry", failures: 1, want: "attempt-2"},
		{name: "two retries", failures: 2, want: "attempt-3"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			svc := testutil.NewServices()
			svc.Failures = tc.failures
			h := testutil.NewHarness(t, flakyWorkflow, "", registry.New(svc), executor.Options{})

			// --- Act ---
			outputs, err := h.Run(t)

			// --- Assert ---
			require.NoError(t, err)
			assert.True(t, outputs["out"].RawEquals(cty.StringVal(tc.want)), "got %#v", outputs["out"])
			assert.Equal(t, tc.failures+1, svc.Calls("flaky"))
			assert.Equal(t, tc.failures, h.Listener.Count("f", node.Failed))
			assert.Equal(t, 1, svc.Calls("echo"), "downstream node runs once, on the successful output")
			assert.Equal(t, []cty.Value{cty.StringVal(tc.want)}, svc.Seen("echo"))
		})
	}
}

func TestExecutor_RetryExhaustedHeadless(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewServices()
	svc.Failures = 100
	h := testutil.NewHarness(t, flakyWorkflow, "", registry.New(svc), executor.Options{})

	// --- Act ---
	outputs, err := h.Run(t)

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrRetryExhausted)
	assert.Equal(t, 3, svc.Calls("flaky"), "initial attempt plus two retries")
	assert.Zero(t, svc.Calls("echo"))
	assert.Empty(t, outputs)
	assert.Contains(t, h.Listener.States(), executor.Stopped)

	events := h.Notifier.Events()
	last := events[len(events)-1]
	assert.Equal(t, notify.WorkflowTerminated, last.Type)
	assert.Contains(t, last.Error, "retry budget exhausted")
}

func TestExecutor_RetryDisabled(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewServices()
	svc.Failures = 1
	h := testutil.NewHarness(t, flakyWorkflow, "", registry.New(svc), executor.Options{MaxRetry: -1})

	// --- Act ---
	_, err := h.Run(t)

	// --- Assert ---
	assert.ErrorIs(t, err, executor.ErrRetryExhausted)
	assert.Equal(t, 1, svc.Calls("flaky"))
}

func TestExecutor_RetryExhaustedInteractive(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewServices()
	svc.Failures = 4
	h := testutil.NewHarness(t, flakyWorkflow, "", registry.New(svc), executor.Options{Interactive: true})

	// --- Act ---
	run, err := h.Executor.Start(h.Ctx)
	require.NoError(t, err)

	// --- Assert ---
	h.WaitState(t, executor.Paused)
	assert.Equal(t, 3, svc.Calls("flaky"))
	assert.Zero(t, svc.Calls("echo"), "the circuit breaker must not let the run continue")

	// Give the node its budget back and resume: attempt 4 fails, 5 succeeds.
	require.NoError(t, h.Executor.RetryNode("f"))
	require.NoError(t, h.Executor.Resume())

	require.Eventually(t, func() bool {
		return slices.Contains(h.Notifier.Types(), notify.PartialResult)
	}, 5*time.Second, 5*time.Millisecond)
	h.WaitState(t, executor.Paused)
	assert.Equal(t, 5, svc.Calls("flaky"))
	assert.Equal(t, 1, svc.Calls("echo"))

	require.NoError(t, h.Executor.Stop())
	require.NoError(t, run.Wait())
	assert.True(t, run.Outputs()["out"].RawEquals(cty.StringVal("attempt-5")))
}

func TestExecutor_RetryNodeUnknown(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, flakyWorkflow, "", registry.New(testutil.NewServices()), executor.Options{})

	err := h.Executor.RetryNode("nope")
	assert.True(t, errors.Is(err, executor.ErrUnknownNode))
	assert.ErrorIs(t, h.Executor.SetBreakpoint("nope", true), executor.ErrUnknownNode)
}
