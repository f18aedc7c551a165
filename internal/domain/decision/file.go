package decision

import (
	"context"
	"path/filepath"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// FileChecker decides filesystem capability requests against per-row path
// sandboxes.
type FileChecker struct {
	base
}

// NewFileChecker creates a file checker.
func NewFileChecker(snapshots SnapshotProvider, conds conditions.Evaluator) *FileChecker {
	return &FileChecker{base{snapshots: snapshots, conds: conds}}
}

// Type returns the capability type this checker serves.
func (c *FileChecker) Type() capability.Type { return capability.TypeFile }

// Check allows on the first entry whose action flag is set and whose
// sandbox contains the requested path. Rows that do not follow symlinks
// resolve the path first, so a link cannot smuggle an access outside the
// sandbox.
func (c *FileChecker) Check(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result {
	fileReq, ok := req.(capability.FileRequest)
	if !ok {
		return capability.Deny(capability.ReasonBadRequestType)
	}

	entries := c.entries(ctx, pluginID, capability.TypeFile)
	if len(entries) == 0 {
		return capability.Deny(capability.ReasonNoCapabilities)
	}

	for _, e := range entries {
		if !e.Active || !c.conditionsOK(ctx, e, evalCtx) {
			continue
		}
		row, ok := e.Row.(*capability.FileRow)
		if !ok {
			continue
		}
		if !row.ActionEnabled(fileReq.Action) {
			continue
		}

		path := fileReq.Path
		if !row.FollowSymlinks {
			// Resolve only when the path exists; a not-yet-created file
			// is judged on its lexical path.
			if resolved, err := filepath.EvalSymlinks(path); err == nil {
				path = resolved
			}
		}
		if capability.PathInSandbox(path, row.BaseDir, row.Paths) {
			return capability.Allow(capability.TypeFile, e.ID)
		}
	}

	return capability.Deny(capability.ReasonNoMatch)
}
