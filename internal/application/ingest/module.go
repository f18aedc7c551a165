package ingest

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// ModuleIngestor persists inter-module call rules.
type ModuleIngestor struct {
	rowIngestor
}

// NewModuleIngestor creates a module ingestor.
func NewModuleIngestor(repo repositories.CapabilityRepository) *ModuleIngestor {
	return &ModuleIngestor{rowIngestor{repo: repo}}
}

// Type returns the capability type this ingestor serves.
func (i *ModuleIngestor) Type() capability.Type { return capability.TypeModule }

// Ingest builds the module row from the rule. Rules that omit actions
// grant the call right implicitly; a module rule with no call right would
// declare nothing.
func (i *ModuleIngestor) Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error) {
	row := &capability.ModuleRow{
		Call:   len(rule.Actions) == 0 || hasAction(rule.Actions, "call"),
		Module: targetString(rule.Target, "module"),
		Alias:  targetString(rule.Target, "alias"),
		APIs:   targetStrings(rule.Target, "apis"),
	}
	return i.upsertRow(ctx, pluginID, row, rule)
}
