// Package conditions implements the constraint evaluator consumed by the
// checkers. The closed predicate kinds (guard, env allow/deny, setting
// link) cover what manifests commonly declare; the open "expr" predicate
// compiles an expression against the runtime context, so hosts extend the
// grammar without touching checker code.
package conditions

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	domain "github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// Ensure interface compliance
var _ domain.Evaluator = (*Evaluator)(nil)

// SettingResolver reads a host-managed setting value for setting_link
// predicates. A nil resolver makes every setting_link constraint an
// evaluation error (fail closed).
type SettingResolver func(ctx context.Context, key string) (any, error)

// Evaluator matches constraint trees against runtime context. Compiled
// expressions are cached per source string.
type Evaluator struct {
	settings SettingResolver

	mu       sync.Mutex
	programs map[string]*vm.Program
}

// New creates an evaluator with an optional setting resolver.
func New(settings SettingResolver) *Evaluator {
	return &Evaluator{
		settings: settings,
		programs: make(map[string]*vm.Program),
	}
}

// Matches evaluates every constraint key and ANDs the outcomes. Absent
// constraints always match; an unknown predicate kind is an error, which
// callers treat as a non-match.
func (e *Evaluator) Matches(ctx context.Context, constraints map[string]any, evalCtx map[string]any) (bool, error) {
	if len(constraints) == 0 {
		return true, nil
	}
	if evalCtx == nil {
		evalCtx = map[string]any{}
	}
	for key, value := range constraints {
		ok, err := e.matchOne(ctx, key, value, evalCtx)
		if err != nil {
			return false, fmt.Errorf("constraint %q: %w", key, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) matchOne(ctx context.Context, key string, value any, evalCtx map[string]any) (bool, error) {
	switch key {
	case "required", "justification":
		// Grant metadata, not runtime predicates.
		return true, nil

	case "guard":
		want, ok := value.(string)
		if !ok {
			return false, fmt.Errorf("guard constraint must be a string")
		}
		got, _ := evalCtx["guard"].(string)
		return want == got, nil

	case "env":
		return matchEnv(value, evalCtx)

	case "setting_link":
		return e.matchSettingLink(ctx, value)

	case "expr":
		src, ok := value.(string)
		if !ok {
			return false, fmt.Errorf("expr constraint must be a string")
		}
		return e.runExpr(src, evalCtx)

	default:
		return false, fmt.Errorf("unknown predicate kind")
	}
}

// matchEnv applies an environment allow/deny list to evalCtx["env"].
// Deny wins; a non-empty allow list requires membership.
func matchEnv(value any, evalCtx map[string]any) (bool, error) {
	spec, ok := value.(map[string]any)
	if !ok {
		return false, fmt.Errorf("env constraint must be a map with allow/deny lists")
	}
	current, _ := evalCtx["env"].(string)

	for _, denied := range anyStrings(spec["deny"]) {
		if denied == current {
			return false, nil
		}
	}
	allow := anyStrings(spec["allow"])
	if len(allow) == 0 {
		return true, nil
	}
	for _, allowed := range allow {
		if allowed == current {
			return true, nil
		}
	}
	return false, nil
}

// matchSettingLink resolves a host-managed setting. A bare string key is a
// truthiness test; a map form compares against an expected value.
func (e *Evaluator) matchSettingLink(ctx context.Context, value any) (bool, error) {
	if e.settings == nil {
		return false, fmt.Errorf("no setting resolver configured")
	}

	switch link := value.(type) {
	case string:
		resolved, err := e.settings(ctx, link)
		if err != nil {
			return false, err
		}
		return truthy(resolved), nil
	case map[string]any:
		key, ok := link["key"].(string)
		if !ok {
			return false, fmt.Errorf("setting_link map needs a string key")
		}
		resolved, err := e.settings(ctx, key)
		if err != nil {
			return false, err
		}
		if expected, ok := link["equals"]; ok {
			return fmt.Sprint(resolved) == fmt.Sprint(expected), nil
		}
		return truthy(resolved), nil
	}
	return false, fmt.Errorf("setting_link must be a key or a {key, equals} map")
}

func (e *Evaluator) runExpr(src string, evalCtx map[string]any) (bool, error) {
	program, err := e.compiled(src)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, evalCtx)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression must evaluate to a boolean, got %T", out)
	}
	return result, nil
}

func (e *Evaluator) compiled(src string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.programs[src]; ok {
		return program, nil
	}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}
	e.programs[src] = program
	return program, nil
}

func anyStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vals}
	}
	return nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "0" && val != "false"
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return true
}
