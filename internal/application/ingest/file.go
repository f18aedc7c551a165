package ingest

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// FileIngestor persists file rules: sandbox base directory, path patterns,
// action flags, and the symlink policy.
type FileIngestor struct {
	rowIngestor
}

// NewFileIngestor creates a file ingestor.
func NewFileIngestor(repo repositories.CapabilityRepository) *FileIngestor {
	return &FileIngestor{rowIngestor{repo: repo}}
}

// Type returns the capability type this ingestor serves.
func (i *FileIngestor) Type() capability.Type { return capability.TypeFile }

// Ingest builds the sandbox row from the rule.
func (i *FileIngestor) Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error) {
	row := &capability.FileRow{
		BaseDir:        targetString(rule.Target, "base_dir"),
		Paths:          targetStrings(rule.Target, "paths"),
		Read:           hasAction(rule.Actions, "read"),
		Write:          hasAction(rule.Actions, "write"),
		Delete:         hasAction(rule.Actions, "delete"),
		List:           hasAction(rule.Actions, "list"),
		FollowSymlinks: targetBool(rule.Target, "follow_symlinks"),
	}
	return i.upsertRow(ctx, pluginID, row, rule)
}
