// Package expr evaluates the short modal and zorder expressions attached to
// screen definitions.
//
// Expressions are run as JavaScript by goja. Scope variables are bound as
// globals, and True, False and None are predefined so definitions written
// with the conventional "False" and "0" defaults evaluate unchanged.
package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/dop251/goja"
)

// Evaluator runs expressions against a variable scope. Each call uses a
// fresh VM, so scopes never leak between evaluations.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate runs expression with vars bound as globals and returns the
// exported Go value.
func (e *Evaluator) Evaluate(expression string, vars map[string]any) (any, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}
	vm := goja.New()
	for name, v := range map[string]any{"True": true, "False": false, "None": nil} {
		if err := vm.Set(name, v); err != nil {
			return nil, err
		}
	}
	for name, v := range vars {
		if err := vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	val, err := vm.RunString(expression)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return val.Export(), nil
}

// Truthy applies the usual truthiness rules to an evaluated value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Int converts an evaluated value to an integer z-order.
func Int(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(t), nil
	case int:
		return t, nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("zorder %v is not an integer", t)
		}
		return int(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("zorder has type %T, want a number", v)
	}
}
