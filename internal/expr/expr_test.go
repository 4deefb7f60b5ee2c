package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		tmpl string
		args []cty.Value
		want bool
	}{
		{name: "string input compared as number", tmpl: "$0 > 2", args: []cty.Value{cty.StringVal("3")}, want: true},
		{name: "number input", tmpl: "$0 > 2", args: []cty.Value{cty.NumberIntVal(1)}, want: false},
		{name: "string equality", tmpl: `$0 == "abc"`, args: []cty.Value{cty.StringVal("abc")}, want: true},
		{name: "two placeholders", tmpl: "$0 < $1", args: []cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}, want: true},
		{name: "function call", tmpl: `upper($0) == "X"`, args: []cty.Value{cty.StringVal("x")}, want: true},
		{name: "bool literal", tmpl: "$0", args: []cty.Value{cty.True}, want: true},
		{name: "template sequences are not interpolated", tmpl: `$0 == "$${x}"`, args: []cty.Value{cty.StringVal("${x}")}, want: true},
		{name: "quotes are escaped", tmpl: `strlen($0) == 3`, args: []cty.Value{cty.StringVal(`a"b`)}, want: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Evaluate(tc.tmpl, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		tmpl    string
		args    []cty.Value
		wantErr string
	}{
		{name: "missing argument", tmpl: "$1 > 0", args: []cty.Value{cty.NumberIntVal(1)}, wantErr: "no matching input"},
		{name: "syntax error", tmpl: "$0 >", args: []cty.Value{cty.NumberIntVal(1)}, wantErr: "invalid condition"},
		{name: "variable reference", tmpl: "x > 1", wantErr: "unknown variable"},
		{name: "unknown function", tmpl: "explode($0)", args: []cty.Value{cty.NumberIntVal(1)}, wantErr: "unknown function"},
		{name: "not a bool", tmpl: `"maybe"`, wantErr: "did not produce a bool"},
		{name: "type mismatch", tmpl: "$0 > 1", args: []cty.Value{cty.StringVal("abc")}, wantErr: "failed to evaluate"},
		{name: "unknown value", tmpl: "$0", args: []cty.Value{cty.UnknownVal(cty.Bool)}, wantErr: "not known"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Evaluate(tc.tmpl, tc.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSubstitute_MultiDigit(t *testing.T) {
	t.Parallel()

	args := make([]cty.Value, 11)
	for i := range args {
		args[i] = cty.NumberIntVal(int64(i))
	}
	got, err := Substitute("$10 + $1", args)
	require.NoError(t, err)
	assert.Equal(t, "10 + 1", got)
}
