package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Validate checks that every registered operation has a callable signature
// whose parameter and result types map onto cty types.
func (r *Registry) Validate(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []string
	for name, fn := range r.operations {
		if err := checkSignature(fn); err != nil {
			errs = append(errs, fmt.Sprintf("operation '%s': %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	ctxlog.FromContext(ctx).Debug("Registry validation passed.", "services", len(r.services), "operations", len(r.operations))
	return nil
}

func checkSignature(fn reflect.Value) error {
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("expected a function, got %s", fn.Kind())
	}
	t := fn.Type()
	if t.IsVariadic() {
		return fmt.Errorf("variadic functions are not supported")
	}
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return fmt.Errorf("must return a value, not only an error")
		}
	case 2:
		if t.Out(1) != errType {
			return fmt.Errorf("second result must be an error")
		}
	default:
		return fmt.Errorf("must return a value, optionally followed by an error")
	}
	if _, err := impliedType(t.Out(0)); err != nil {
		return fmt.Errorf("result type %s: %w", t.Out(0), err)
	}
	for i := firstArg(t); i < t.NumIn(); i++ {
		if _, err := impliedType(t.In(i)); err != nil {
			return fmt.Errorf("parameter %d of type %s: %w", i, t.In(i), err)
		}
	}
	return nil
}

// impliedType maps a Go type onto cty. Interface types carry no static
// shape and are rejected.
func impliedType(rt reflect.Type) (cty.Type, error) {
	if rt.Kind() == reflect.Interface {
		return cty.NilType, fmt.Errorf("interface types are not supported")
	}
	return gocty.ImpliedType(reflect.Zero(rt).Interface())
}

func firstArg(t reflect.Type) int {
	if t.NumIn() > 0 && t.In(0) == ctxType {
		return 1
	}
	return 0
}

// ParamTypes returns the cty types of an operation's positional parameters.
func (r *Registry) ParamTypes(name string) ([]cty.Type, error) {
	fn, err := r.operation(name)
	if err != nil {
		return nil, err
	}
	t := fn.Type()
	var out []cty.Type
	for i := firstArg(t); i < t.NumIn(); i++ {
		ty, err := impliedType(t.In(i))
		if err != nil {
			return nil, err
		}
		out = append(out, ty)
	}
	return out, nil
}

// CallOperation invokes an operation with positional arguments, converting
// each cty value to the Go parameter type and the result back to cty.
func (r *Registry) CallOperation(ctx context.Context, name string, args []cty.Value) (cty.Value, error) {
	fn, err := r.operation(name)
	if err != nil {
		return cty.NilVal, err
	}
	t := fn.Type()
	offset := firstArg(t)
	if want := t.NumIn() - offset; len(args) != want {
		return cty.NilVal, fmt.Errorf("operation %q takes %d arguments, got %d", name, want, len(args))
	}

	in := make([]reflect.Value, 0, t.NumIn())
	if offset == 1 {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, arg := range args {
		pt := t.In(i + offset)
		want, err := impliedType(pt)
		if err != nil {
			return cty.NilVal, err
		}
		conv, err := convert.Convert(arg, want)
		if err != nil {
			return cty.NilVal, fmt.Errorf("operation %q, argument %d: %w", name, i, err)
		}
		target := reflect.New(pt)
		if err := gocty.FromCtyValue(conv, target.Interface()); err != nil {
			return cty.NilVal, fmt.Errorf("operation %q, argument %d: %w", name, i, err)
		}
		in = append(in, target.Elem())
	}

	out := fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return cty.NilVal, out[1].Interface().(error)
	}
	res := out[0].Interface()
	ty, err := gocty.ImpliedType(res)
	if err != nil {
		return cty.NilVal, fmt.Errorf("operation %q result: %w", name, err)
	}
	return gocty.ToCtyValue(res, ty)
}

func (r *Registry) operation(name string) (reflect.Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.operations[name]
	if !ok {
		return reflect.Value{}, fmt.Errorf("operation %q is not registered", name)
	}
	return fn, nil
}
