// Package decision implements the per-type capability checkers. Every
// checker evaluates a typed request against the plugin's compiled snapshot
// and returns a uniform allow/deny result; a deny is a normal outcome.
package decision

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// SnapshotProvider supplies the compiled capability snapshot for a plugin.
// The permission service implements it on top of the cache, compiling on
// miss so checkers never see a partial view.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, pluginID string) (*capability.Snapshot, error)
}

// Checker decides requests for exactly one capability type.
type Checker interface {
	Type() capability.Type
	Check(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result
}

// base carries the collaborators every snapshot-backed checker shares and
// the common scan helpers.
type base struct {
	snapshots SnapshotProvider
	conds     conditions.Evaluator
}

// entries fetches the compiled entries for one type. Nil when the snapshot
// is unavailable or carries nothing for the type.
func (b base) entries(ctx context.Context, pluginID string, t capability.Type) []capability.Entry {
	snap, err := b.snapshots.Snapshot(ctx, pluginID)
	if err != nil || snap == nil {
		return nil
	}
	return snap.ForType(t)
}

// conditionsOK matches an entry's constraints against the runtime context.
// Evaluation failures are non-matches: a constraint that cannot be
// evaluated must not grant access.
func (b base) conditionsOK(ctx context.Context, e capability.Entry, evalCtx map[string]any) bool {
	if len(e.Constraints) == 0 {
		return true
	}
	ok, err := b.conds.Matches(ctx, e.Constraints, evalCtx)
	return err == nil && ok
}
