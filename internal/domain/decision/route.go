package decision

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// RouteChecker decides route-registration requests. Routes carry no
// compiled capability entries; the approval record in the repository is the
// grant, so this checker reads the repository directly.
type RouteChecker struct {
	repo repositories.CapabilityRepository
}

// NewRouteChecker creates a route checker.
func NewRouteChecker(repo repositories.CapabilityRepository) *RouteChecker {
	return &RouteChecker{repo: repo}
}

// Type returns the capability type this checker serves.
func (c *RouteChecker) Type() capability.Type { return capability.TypeRoute }

// Check allows registration only for an approved declaration. When a guard
// is locked on the approval, the requested guard must match it exactly.
func (c *RouteChecker) Check(ctx context.Context, pluginID string, req capability.Request, _ map[string]any) capability.Result {
	routeReq, ok := req.(capability.RouteRequest)
	if !ok {
		return capability.Deny(capability.ReasonBadRequestType)
	}

	approval, err := c.repo.RoutePermission(ctx, pluginID, routeReq.RouteID)
	if err != nil {
		res := capability.Deny(capability.ReasonCheckerUnavailable)
		res.Context = map[string]any{"error": err.Error()}
		return res
	}
	if approval == nil {
		return capability.Deny(capability.ReasonRouteNotDeclared)
	}
	if approval.Status != capability.RouteApproved {
		res := capability.Deny(capability.ReasonRouteNotApproved)
		res.Context = map[string]any{"status": approval.Status}
		return res
	}
	if approval.Guard != "" && routeReq.Guard != approval.Guard {
		return capability.Deny(capability.ReasonGuardMismatch)
	}
	return capability.Allow(capability.TypeRoute, approval.ID)
}
