package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type testModule struct{}

func (testModule) Register(r *Registry) {
	r.RegisterService("echo", func(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
		return in, nil
	})
	r.RegisterOperation("join", func(parts []string, sep string) string {
		return strings.Join(parts, sep)
	})
	r.RegisterOperation("fail", func(ctx context.Context) (string, error) {
		return "", errors.New("nope")
	})
	r.RegisterOperation("add", func(a, b int) int { return a + b })
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	r := New(testModule{})

	_, ok := r.Service("echo")
	assert.True(t, ok)
	_, ok = r.Service("missing")
	assert.False(t, ok)

	services, ops := r.Names()
	assert.Equal(t, []string{"echo"}, services)
	assert.Equal(t, []string{"add", "fail", "join"}, ops)
	require.NoError(t, r.Validate(context.Background()))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Parallel()

	r := New(testModule{})
	assert.Panics(t, func() { r.RegisterOperation("join", func() string { return "" }) })
	assert.Panics(t, func() { r.RegisterService("echo", nil) })
}

func TestRegistry_CallOperation(t *testing.T) {
	t.Parallel()

	r := New(testModule{})
	ctx := context.Background()

	// Tuple of strings is converted to []string; the string "3" converts to int.
	got, err := r.CallOperation(ctx, "join", []cty.Value{
		cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
		cty.StringVal("-"),
	})
	require.NoError(t, err)
	assert.True(t, got.RawEquals(cty.StringVal("a-b")))

	sum, err := r.CallOperation(ctx, "add", []cty.Value{cty.StringVal("3"), cty.NumberIntVal(4)})
	require.NoError(t, err)
	assert.True(t, sum.RawEquals(cty.NumberIntVal(7)))

	_, err = r.CallOperation(ctx, "fail", nil)
	assert.EqualError(t, err, "nope")

	_, err = r.CallOperation(ctx, "add", []cty.Value{cty.NumberIntVal(1)})
	assert.ErrorContains(t, err, "takes 2 arguments")

	_, err = r.CallOperation(ctx, "add", []cty.Value{cty.StringVal("x"), cty.NumberIntVal(1)})
	assert.ErrorContains(t, err, "argument 0")

	_, err = r.CallOperation(ctx, "ghost", nil)
	assert.ErrorContains(t, err, "not registered")
}

func TestRegistry_ParamTypes(t *testing.T) {
	t.Parallel()

	r := New(testModule{})
	types, err := r.ParamTypes("join")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.True(t, types[0].Equals(cty.List(cty.String)))
	assert.True(t, types[1].Equals(cty.String))
}

func TestRegistry_ValidateRejectsBadSignatures(t *testing.T) {
	t.Parallel()

	r := New()
	r.RegisterOperation("onlyErr", func() error { return nil })
	r.RegisterOperation("notFunc", 42)
	r.RegisterOperation("anyArg", func(v any) string { return "" })

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "onlyErr")
	assert.Contains(t, err.Error(), "notFunc")
	assert.Contains(t, err.Error(), "anyArg")
}
