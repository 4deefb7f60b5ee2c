package yamlloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const sample = `
workflows:
  - name: main
    nodes:
      - kind: input
        name: items
        default: "a,b,c"
      - kind: loop
        name: each
        from: items
      - kind: service_call
        name: upper
        operation: upper
        inputs:
          - {name: value, from: each.item}
        outputs:
          - {name: result, type: string}
      - kind: loop_join
        name: collect
        inputs:
          - {name: results, from: upper.result}
      - kind: constant
        name: limit
        value: 3
        type: number
      - kind: output
        name: out
        from: collect.results
`

func TestLoader_LoadSource(t *testing.T) {
	t.Parallel()

	model, err := NewLoader().LoadSource(context.Background(), "wf.yaml", []byte(sample))
	require.NoError(t, err)

	wf, err := model.Workflow("")
	require.NoError(t, err)
	require.Len(t, wf.Nodes, 6)

	items := wf.Nodes[0]
	require.NotNil(t, items.Value)
	assert.True(t, items.Value.RawEquals(cty.StringVal("a,b,c")))

	loop := wf.Nodes[1]
	require.Len(t, loop.Inputs, 1)
	assert.Equal(t, "items", loop.Inputs[0].Name)
	assert.Equal(t, "items", loop.Inputs[0].From)

	upper := wf.Nodes[2]
	assert.Equal(t, "each.item", upper.Inputs[0].From)
	assert.True(t, upper.Outputs[0].Type.Equals(cty.String))

	limit := wf.Nodes[4]
	assert.True(t, limit.Value.RawEquals(cty.NumberIntVal(3)))
	assert.True(t, limit.Type.Equals(cty.Number))

	out := wf.Nodes[5]
	assert.Equal(t, "value", out.Inputs[0].Name)
	assert.Equal(t, "collect.results", out.Inputs[0].From)
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wf.yml"), []byte(sample), 0o644))

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, model.Names())
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "unknown field", src: "workflows:\n  - name: a\n    nodez: []\n", wantErr: "failed to decode"},
		{name: "bad type", src: "workflows:\n  - name: a\n    nodes:\n      - {kind: input, name: x, type: strng}\n", wantErr: "unknown primitive type"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLoader().LoadSource(context.Background(), "bad.yaml", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
