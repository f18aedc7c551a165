package services

import (
	"context"
	"fmt"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
)

// ManifestIngestor walks a manifest's rule lists and dispatches each rule
// to its type's ingestor. One bad rule becomes a path-qualified warning;
// it never aborts the rest of the manifest.
type ManifestIngestor struct {
	registry *Registry
}

// NewManifestIngestor creates a manifest ingestor over the registry.
func NewManifestIngestor(registry *Registry) *ManifestIngestor {
	return &ManifestIngestor{registry: registry}
}

// Ingest processes required then optional permissions and accumulates the
// summary.
func (m *ManifestIngestor) Ingest(ctx context.Context, pluginID string, man manifest.Manifest) dto.IngestSummary {
	var summary dto.IngestSummary
	m.ingestList(ctx, pluginID, "required_permissions", man.RequiredPermissions, &summary)
	m.ingestList(ctx, pluginID, "optional_permissions", man.OptionalPermissions, &summary)
	return summary
}

func (m *ManifestIngestor) ingestList(ctx context.Context, pluginID, listName string, rules []manifest.Rule, summary *dto.IngestSummary) {
	for idx, rule := range rules {
		path := fmt.Sprintf("$.%s[%d]", listName, idx)

		ing, ok := m.registry.Ingestor(rule.CapabilityType())
		if !ok {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: no ingestor registered for type %q", path, rule.Type))
			continue
		}

		res, err := ing.Ingest(ctx, pluginID, rule)
		if err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if res.Warning != "" {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %s", path, res.Warning))
		}
		if res.Created {
			summary.Created++
		}
		if res.Assigned {
			summary.Linked++
		}
		summary.Items = append(summary.Items, res)
	}
}
