// Package conditions defines the consumed contract for constraint
// matching. The predicate tree attached to an assignment is opaque to the
// checkers; an Evaluator decides whether it matches the runtime context.
package conditions

import "context"

// Evaluator matches an assignment's constraint tree against the runtime
// context of a check. Implementations are expected to be extensible to new
// predicate kinds without changing checker code.
type Evaluator interface {
	// Matches reports whether the constraints hold for the given context.
	// Absent (nil or empty) constraints always match. An error means the
	// constraints could not be evaluated; callers treat that as a
	// non-match.
	Matches(ctx context.Context, constraints map[string]any, evalCtx map[string]any) (bool, error)
}

// Always is an Evaluator that matches everything; useful for hosts that do
// not use constraints and for tests.
type Always struct{}

// Matches always reports true.
func (Always) Matches(context.Context, map[string]any, map[string]any) (bool, error) {
	return true, nil
}
