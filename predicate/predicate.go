// Package predicate compiles a CEL expression once and evaluates it repeatedly against a
// map-shaped view of a candidate handle, deciding whether a registry-wide operation applies
// to it.
package predicate

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
)

// Evaluator holds a compiled CEL expression evaluated against a single map-shaped subject
// ("mapX" in the expression), e.g. "!mapX.special && mapX.refcnt == 0".
type Evaluator struct {
	Expression string
	program    cel.Program
}

// MatchAll is returned for an empty expression; its Match always reports true without ever
// invoking the CEL runtime.
var MatchAll = &Evaluator{}

// NewEvaluator compiles expr. An empty expr is valid and yields an Evaluator that matches
// every handle.
func NewEvaluator(expr string) (*Evaluator, error) {
	if expr == "" {
		return MatchAll, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("mapX", cel.MapType(cel.StringType, cel.AnyType)),
	)
	if err != nil {
		return nil, fmt.Errorf("predicate: creating CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("predicate: compiling %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("predicate: building program for %q: %w", expr, err)
	}
	return &Evaluator{Expression: expr, program: prg}, nil
}

// Match evaluates the compiled expression against attrs (a handle's name/checkpoint/refcnt/
// special attributes) and reports the resulting boolean.
func (e *Evaluator) Match(ctx context.Context, attrs map[string]any) (bool, error) {
	if e == nil || e.program == nil {
		return true, nil
	}
	out, _, err := e.program.Eval(map[string]any{"mapX": attrs})
	if err != nil {
		return false, fmt.Errorf("predicate: evaluating %q: %w", e.Expression, err)
	}
	b, err := out.ConvertToNative(reflect.TypeOf(false))
	if err != nil {
		return false, fmt.Errorf("predicate: %q did not evaluate to a bool: %w", e.Expression, err)
	}
	return b.(bool), nil
}
