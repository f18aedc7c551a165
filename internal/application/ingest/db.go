package ingest

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// dbActions is the closed set of db action flags a rule can enable.
var dbActions = []string{"select", "insert", "update", "delete", "truncate", "grouped_queries"}

// DBIngestor persists db rules: model/table scope, action flags, and the
// column policy lists.
type DBIngestor struct {
	rowIngestor
}

// NewDBIngestor creates a db ingestor.
func NewDBIngestor(repo repositories.CapabilityRepository) *DBIngestor {
	return &DBIngestor{rowIngestor{repo: repo}}
}

// Type returns the capability type this ingestor serves.
func (i *DBIngestor) Type() capability.Type { return capability.TypeDB }

// Ingest maps the rule's actions onto boolean flags and its target onto
// the column policy. A bare "columns" target feeds both policy lists.
func (i *DBIngestor) Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error) {
	readable := targetStrings(rule.Target, "readable_columns")
	writable := targetStrings(rule.Target, "writable_columns")
	if columns := targetStrings(rule.Target, "columns"); len(columns) > 0 {
		if len(readable) == 0 {
			readable = columns
		}
		if len(writable) == 0 {
			writable = columns
		}
	}

	permissions := make(map[string]bool, len(dbActions))
	for _, action := range dbActions {
		permissions[action] = hasAction(rule.Actions, action)
	}

	row := &capability.DBRow{
		Model:           targetString(rule.Target, "model"),
		Table:           targetString(rule.Target, "table"),
		Permissions:     permissions,
		ReadableColumns: readable,
		WritableColumns: writable,
	}
	return i.upsertRow(ctx, pluginID, row, rule)
}
