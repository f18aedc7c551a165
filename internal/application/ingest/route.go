package ingest

import (
	"context"
	"fmt"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// RouteIngestor records route declarations. Routes have no concrete row;
// each declared route id becomes a pending approval that the host's
// approval workflow later resolves.
type RouteIngestor struct {
	repo repositories.CapabilityRepository
}

// NewRouteIngestor creates a route ingestor.
func NewRouteIngestor(repo repositories.CapabilityRepository) *RouteIngestor {
	return &RouteIngestor{repo: repo}
}

// Type returns the capability type this ingestor serves.
func (i *RouteIngestor) Type() capability.Type { return capability.TypeRoute }

// Ingest declares every route in the rule's target, idempotently. The
// natural key covers the declared route set so re-ingestion is stable.
func (i *RouteIngestor) Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error) {
	routes := targetStrings(rule.Target, "routes")
	if r := targetString(rule.Target, "route"); r != "" {
		routes = append(routes, r)
	}
	if len(routes) == 0 {
		return dto.RuleIngestResult{Type: capability.TypeRoute}, fmt.Errorf("route rule declares no routes")
	}

	key, err := capability.NaturalKey(capability.TypeRoute, map[string]any{"routes": routes})
	if err != nil {
		return dto.RuleIngestResult{Type: capability.TypeRoute}, err
	}

	meta := MetaFromRule(rule)
	result := dto.RuleIngestResult{
		Type:         capability.TypeRoute,
		NaturalKey:   key,
		ConcreteType: capability.TypeRoute,
	}
	for _, routeID := range routes {
		approval, created, err := i.repo.DeclareRoute(ctx, pluginID, routeID, meta)
		if err != nil {
			return result, fmt.Errorf("declare route %q: %w", routeID, err)
		}
		if created {
			result.Created = true
		}
		if result.ConcreteID == 0 {
			result.ConcreteID = approval.ID
		}
	}
	// A route declaration is its own assignment; linking tracks creation.
	result.Assigned = result.Created
	return result, nil
}
