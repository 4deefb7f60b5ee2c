package ctyutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestFromNative(t *testing.T) {
	t.Parallel()

	v, err := FromNative(map[string]any{
		"name":  "x",
		"count": 3,
		"tags":  []any{"a", true},
	})
	require.NoError(t, err)

	assert.True(t, v.GetAttr("name").RawEquals(cty.StringVal("x")))
	assert.True(t, v.GetAttr("count").RawEquals(cty.NumberIntVal(3)))
	assert.True(t, v.GetAttr("tags").RawEquals(cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.True})))
}

func TestToNative(t *testing.T) {
	t.Parallel()

	native, err := ToNative(cty.ObjectVal(map[string]cty.Value{
		"n":    cty.NumberIntVal(10),
		"list": cty.ListVal([]cty.Value{cty.StringVal("A"), cty.StringVal("B")}),
		"null": cty.NullVal(cty.String),
	}))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"n":    float64(10),
		"list": []any{"A", "B"},
		"null": nil,
	}, native)
}

func TestAsString(t *testing.T) {
	t.Parallel()

	s, err := AsString(cty.NumberIntVal(10))
	require.NoError(t, err)
	assert.Equal(t, "10", s)

	_, err = AsString(cty.NullVal(cty.String))
	assert.Error(t, err)

	_, err = AsString(cty.ListValEmpty(cty.String))
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	same := Aggregate([]cty.Value{cty.StringVal("A"), cty.StringVal("B")})
	assert.True(t, same.Type().IsListType())

	mixed := Aggregate([]cty.Value{cty.StringVal("A"), cty.NumberIntVal(1)})
	assert.True(t, mixed.Type().IsTupleType())

	assert.Equal(t, cty.EmptyTupleVal, Aggregate(nil))
}

func TestElements(t *testing.T) {
	t.Parallel()

	elems, err := Elements(cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(2)}))
	require.NoError(t, err)
	assert.Len(t, elems, 2)

	_, err = Elements(cty.StringVal("a,b"))
	assert.Error(t, err)
}
