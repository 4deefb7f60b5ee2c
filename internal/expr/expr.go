// Package expr evaluates the boolean conditions of Conditional nodes.
//
// A condition is an HCL expression template with positional placeholders
// `$0`, `$1`, ... that are replaced by the node's resolved input values
// rendered as HCL literals. The result must convert to a bool. Conditions
// may call a fixed set of cty stdlib functions and may not reference
// variables.
package expr

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Functions returns the function table available to conditions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"abs":       stdlib.AbsoluteFunc,
		"ceil":      stdlib.CeilFunc,
		"contains":  stdlib.ContainsFunc,
		"floor":     stdlib.FloorFunc,
		"join":      stdlib.JoinFunc,
		"length":    stdlib.LengthFunc,
		"lower":     stdlib.LowerFunc,
		"max":       stdlib.MaxFunc,
		"min":       stdlib.MinFunc,
		"parseint":  stdlib.ParseIntFunc,
		"regex":     stdlib.RegexFunc,
		"split":     stdlib.SplitFunc,
		"strlen":    stdlib.StrlenFunc,
		"substr":    stdlib.SubstrFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"upper":     stdlib.UpperFunc,
	}
}

// Substitute replaces every `$N` placeholder in tmpl with the HCL literal of
// args[N]. Multi-digit indices are matched whole, so `$10` never reads as
// `$1` followed by `0`.
func Substitute(tmpl string, args []cty.Value) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		idx, err := strconv.Atoi(m[1:])
		if err != nil || idx >= len(args) {
			if firstErr == nil {
				firstErr = fmt.Errorf("placeholder %s has no matching input (have %d)", m, len(args))
			}
			return m
		}
		lit, err := Literal(args[idx])
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("placeholder %s: %w", m, err)
			}
			return m
		}
		return lit
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Literal renders v as HCL source. Strings come out quoted and escaped,
// including template sequences.
func Literal(v cty.Value) (string, error) {
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}
	return string(hclwrite.TokensForValue(v).Bytes()), nil
}

// Evaluate substitutes args into tmpl and evaluates the result as a bool.
func Evaluate(tmpl string, args []cty.Value) (bool, error) {
	src, err := Substitute(tmpl, args)
	if err != nil {
		return false, err
	}

	e, diags := hclsyntax.ParseExpression([]byte(src), "condition", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return false, fmt.Errorf("invalid condition %q: %s", src, diags.Error())
	}
	if vars := e.Variables(); len(vars) > 0 {
		return false, fmt.Errorf("condition %q references unknown variable %q", src, vars[0].RootName())
	}

	funcs := Functions()
	for _, name := range calledFunctions(e) {
		if _, ok := funcs[name]; !ok {
			return false, fmt.Errorf("condition %q calls unknown function %q", src, name)
		}
	}

	val, diags := e.Value(&hcl.EvalContext{Functions: funcs})
	if diags.HasErrors() {
		return false, fmt.Errorf("failed to evaluate condition %q: %s", src, diags.Error())
	}
	b, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("condition %q did not produce a bool: %w", src, err)
	}
	if b.IsNull() || !b.IsKnown() {
		return false, fmt.Errorf("condition %q evaluated to null", src)
	}
	return b.True(), nil
}

// calledFunctions walks the syntax tree and returns the sorted, unique names
// of every function called.
func calledFunctions(e hclsyntax.Expression) []string {
	found := make(map[string]struct{})
	walkForFunctions(e, found)
	names := make([]string, 0, len(found))
	for f := range found {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

func walkForFunctions(e hclsyntax.Expression, functions map[string]struct{}) {
	if e == nil {
		return
	}
	switch e := e.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		for _, arg := range e.Args {
			walkForFunctions(arg, functions)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, functions)
		walkForFunctions(e.RHS, functions)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, functions)
		walkForFunctions(e.TrueResult, functions)
		walkForFunctions(e.FalseResult, functions)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, functions)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, functions)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, functions)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, functions)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, functions)
			walkForFunctions(item.ValueExpr, functions)
		}
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, functions)
		walkForFunctions(e.Key, functions)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, functions)
	}
}
