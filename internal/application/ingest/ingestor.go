// Package ingest turns normalized manifest rules into persisted concrete
// rows and plugin assignments, one ingestor per capability type. Ingestors
// build the concrete row from the rule's target and actions, derive the
// natural key from that same row, and hand both to the repository's
// idempotent upsert.
package ingest

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// Ingestor persists one manifest rule of its capability type. An error
// applies to that rule only; the orchestrator downgrades it to a warning
// and continues with the rest of the manifest.
type Ingestor interface {
	Type() capability.Type
	Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error)
}

// rowIngestor is the shared upsert path for every row-backed type.
type rowIngestor struct {
	repo repositories.CapabilityRepository
}

// upsertRow derives the natural key from the built row and performs the
// idempotent find-or-create plus assignment.
func (i rowIngestor) upsertRow(ctx context.Context, pluginID string, row capability.ConcreteRow, rule manifest.Rule) (dto.RuleIngestResult, error) {
	key, err := capability.RowNaturalKey(row)
	if err != nil {
		return dto.RuleIngestResult{Type: row.RowType()}, err
	}

	res, err := i.repo.UpsertForPlugin(ctx, pluginID, capability.UpsertDTO{
		Type:       row.RowType(),
		NaturalKey: key,
		Row:        row,
	}, MetaFromRule(rule))
	if err != nil {
		return dto.RuleIngestResult{Type: row.RowType(), NaturalKey: key}, err
	}

	return dto.RuleIngestResult{
		Type:         row.RowType(),
		NaturalKey:   key,
		ConcreteID:   res.ConcreteID,
		ConcreteType: res.ConcreteType,
		Created:      res.Created,
		Assigned:     res.Assigned,
		Warning:      res.Warning,
	}, nil
}

// MetaFromRule projects a rule's grant metadata onto the assignment.
func MetaFromRule(rule manifest.Rule) capability.AssignmentMeta {
	return capability.AssignmentMeta{
		Actions:       rule.Actions,
		Audit:         rule.Audit,
		Conditions:    rule.Conditions,
		Constraints:   rule.Constraints,
		Justification: rule.Justification,
		Window:        rule.Window,
	}
}
