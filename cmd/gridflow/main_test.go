package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/gridflow/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidWorkflow(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		workflow "main" {
			node "input" "x" {
		// Missing closing braces here
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600), "failed to set up test file")
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, []string{filePath})

	// --- Assert ---
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "failed to load workflow definitions")
	assert.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	require.Error(t, err)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_Workflow(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := `
workflow "main" {
  node "input" "word" {
    default = "grid"
    type    = string
  }

  node "service_call" "shout" {
    operation = "upper"
    input "value" { from = word }
    output "result" { type = string }
  }

  node "output" "loud" {
    from = shout.result
  }
}
`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(src), 0o600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-i", "word=flow", filePath})

	// --- Assert ---
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), `"outputs":{"loud":"FLOW"}`)
}
