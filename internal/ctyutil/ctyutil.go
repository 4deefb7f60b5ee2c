// Package ctyutil holds the conversions between cty values and native Go
// values shared by the loaders, invokers and notification sinks.
package ctyutil

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToNative converts a cty.Value into plain Go values (string, float64, bool,
// []any, map[string]any). Null and unknown values become nil.
func ToNative(val cty.Value) (any, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}

// FromNative converts decoded YAML/JSON style Go values into cty. Slices
// become tuples and maps become objects so heterogeneous documents survive.
func FromNative(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return t, nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case uint64:
		return cty.NumberUIntVal(t), nil
	case float64:
		return cty.NumberFloatVal(t), nil
	case *big.Float:
		return cty.NumberVal(t), nil
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(t))
		for _, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, ev)
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = ev
		}
		return cty.ObjectVal(attrs), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

// ForLogs renders a value in a shape slog handlers print readably.
func ForLogs(v cty.Value) any {
	native, err := ToNative(v)
	if err != nil {
		return fmt.Sprintf("[unloggable cty.Value: %v]", err)
	}
	return native
}

// AsString converts a primitive value to its string form.
func AsString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("value is null")
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("value is unknown")
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("cannot use %s as a string: %w", v.Type().FriendlyName(), err)
	}
	return s.AsString(), nil
}

// Elements returns the members of a list, set or tuple value.
func Elements(v cty.Value) ([]cty.Value, error) {
	ty := v.Type()
	if !ty.IsListType() && !ty.IsSetType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("value of type %s is not a collection", ty.FriendlyName())
	}
	if v.IsNull() {
		return nil, nil
	}
	out := make([]cty.Value, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, e := it.Element()
		out = append(out, e)
	}
	return out, nil
}

// Aggregate joins per-iteration results into a single value: a list when
// all elements share a type, a tuple otherwise.
func Aggregate(vals []cty.Value) cty.Value {
	if len(vals) == 0 {
		return cty.EmptyTupleVal
	}
	first := vals[0].Type()
	for _, v := range vals[1:] {
		if !v.Type().Equals(first) {
			return cty.TupleVal(vals)
		}
	}
	return cty.ListVal(vals)
}

// ObjectFromMap builds an object value from named values.
func ObjectFromMap(m map[string]cty.Value) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(m)
}
