package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const sampleWorkflow = `
workflow "main" {
  description = "doubles a number unless it is small"

  node "input" "n" {
    default = "3"
    type    = string
  }

  node "conditional" "check" {
    condition = "$0 > 2"
    input "n" { from = n }
  }

  node "service_call" "a" {
    operation  = "double"
    endpoint   = "http://svc.local/run"
    depends_on = ["check.true"]
    breakpoint = true
    input "value" { from = n.value }
    output "result" { type = string }
  }

  node "dynamic_call" "join" {
    operation = "join"
    input "parts" {
      from = "a.result"
      type = list(string)
    }
    output "result" {}
  }

  node "resource_start" "vm" {
    resource {
      instance_id = "i-123"
      region      = "us-east-1"
    }
  }

  node "s3_input" "blob" {
    s3 {
      bucket = "data"
      key    = "input.txt"
    }
  }

  node "output" "y" {
    from = a.result
  }
}

workflow "inner" {
  node "input" "v" {}
}
`

func TestLoader_LoadSource(t *testing.T) {
	t.Parallel()

	// --- Act ---
	model, err := NewLoader().LoadSource(context.Background(), "main.hcl", []byte(sampleWorkflow))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "main"}, model.Names())

	wf, err := model.Workflow("main")
	require.NoError(t, err)
	assert.Equal(t, "doubles a number unless it is small", wf.Description)
	require.Len(t, wf.Nodes, 7)

	n := wf.Nodes[0]
	assert.Equal(t, "input", n.Kind)
	require.NotNil(t, n.Value)
	assert.True(t, n.Value.RawEquals(cty.StringVal("3")))
	assert.True(t, n.Type.Equals(cty.String))

	check := wf.Nodes[1]
	assert.Equal(t, "$0 > 2", check.Condition)
	require.Len(t, check.Inputs, 1)
	assert.Equal(t, "n", check.Inputs[0].From)

	a := wf.Nodes[2]
	assert.Equal(t, "double", a.Operation)
	assert.Equal(t, "http://svc.local/run", a.Endpoint)
	assert.Equal(t, []string{"check.true"}, a.DependsOn)
	assert.True(t, a.Breakpoint)
	assert.Equal(t, "n.value", a.Inputs[0].From)
	assert.True(t, a.Outputs[0].Type.Equals(cty.String))

	join := wf.Nodes[3]
	assert.Equal(t, "a.result", join.Inputs[0].From)
	assert.True(t, join.Inputs[0].Type.Equals(cty.List(cty.String)))
	assert.True(t, join.Outputs[0].Type == cty.NilType, "undeclared type stays unset")

	vm := wf.Nodes[4]
	require.NotNil(t, vm.Resource)
	assert.Equal(t, "i-123", vm.Resource.InstanceID)
	assert.Equal(t, "us-east-1", vm.Resource.Region)

	blob := wf.Nodes[5]
	require.NotNil(t, blob.S3)
	assert.Equal(t, "data", blob.S3.Bucket)
	assert.Equal(t, "input.txt", blob.S3.Key)

	out := wf.Nodes[6]
	require.Len(t, out.Inputs, 1)
	assert.Equal(t, "value", out.Inputs[0].Name)
	assert.Equal(t, "a.result", out.Inputs[0].From)
}

func TestLoader_LoadDirectory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(sampleWorkflow), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, model.Workflows, 2)
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "syntax error",
			src:     `workflow "main" {`,
			wantErr: "failed to parse",
		},
		{
			name: "unknown type keyword",
			src: `workflow "main" {
  node "input" "x" {
    type = strng
  }
}`,
			wantErr: "unknown primitive type",
		},
		{
			name: "from combined with inputs",
			src: `workflow "main" {
  node "output" "y" {
    from = a.b
    input "value" { from = a.b }
  }
}`,
			wantErr: "cannot be combined",
		},
		{
			name: "duplicate workflow",
			src: `workflow "main" {}
workflow "main" {}`,
			wantErr: "more than once",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLoader().LoadSource(context.Background(), "test.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	ty, err := ParseType(context.Background(), "list(number)")
	require.NoError(t, err)
	assert.True(t, ty.Equals(cty.List(cty.Number)))

	_, err = ParseType(context.Background(), "list(")
	assert.Error(t, err)
}
