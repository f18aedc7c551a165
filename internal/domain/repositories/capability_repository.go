// Package repositories defines persistence ports consumed by the engine.
package repositories

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

// CapabilityRepository is the engine's only I/O dependency: it fetches
// assignments, batch-hydrates concrete rows, performs idempotent
// upsert-by-natural-key, and reads route approvals. Implementations must be
// swappable between a relational store and an in-memory double without
// changing engine behavior.
type CapabilityRepository interface {
	// DirectAssignments returns the plugin's direct grants, active or not.
	DirectAssignments(ctx context.Context, pluginID string) ([]capability.Assignment, error)

	// TagAssignments returns grants the plugin inherits through permission
	// tag membership. Each carries its Tag reference.
	TagAssignments(ctx context.Context, pluginID string) ([]capability.Assignment, error)

	// ConcreteByType batch-hydrates concrete rows of one type by id.
	// Unknown ids are simply absent from the result map.
	ConcreteByType(ctx context.Context, t capability.Type, ids []int64) (map[int64]capability.ConcreteRow, error)

	// UpsertForPlugin finds or creates the concrete row by natural key,
	// then idempotently ensures a direct assignment with the given meta.
	UpsertForPlugin(ctx context.Context, pluginID string, dto capability.UpsertDTO, meta capability.AssignmentMeta) (capability.UpsertResult, error)

	// RoutePermission returns the approval state for one declared route,
	// or nil if the plugin never declared it.
	RoutePermission(ctx context.Context, pluginID, routeID string) (*capability.RouteApproval, error)

	// DeclareRoute idempotently records a route declaration for the
	// plugin, creating a pending approval if none exists. It returns the
	// approval and whether it was newly created.
	DeclareRoute(ctx context.Context, pluginID, routeID string, meta capability.AssignmentMeta) (*capability.RouteApproval, bool, error)
}
