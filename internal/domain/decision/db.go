package decision

import (
	"context"
	"strings"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// DBChecker decides database capability requests: action flags, optional
// model/table equality, and column-level read/write policy.
type DBChecker struct {
	base
}

// NewDBChecker creates a db checker.
func NewDBChecker(snapshots SnapshotProvider, conds conditions.Evaluator) *DBChecker {
	return &DBChecker{base{snapshots: snapshots, conds: conds}}
}

// Type returns the capability type this checker serves.
func (c *DBChecker) Type() capability.Type { return capability.TypeDB }

// Check scans the plugin's db entries in ascending id order and allows on
// the first entry whose action flag, target, and column policy all hold.
func (c *DBChecker) Check(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result {
	dbReq, ok := req.(capability.DBRequest)
	if !ok {
		return capability.Deny(capability.ReasonBadRequestType)
	}

	entries := c.entries(ctx, pluginID, capability.TypeDB)
	if len(entries) == 0 {
		return capability.Deny(capability.ReasonNoCapabilities)
	}

	columnViolation := false
	for _, e := range entries {
		if !e.Active || !c.conditionsOK(ctx, e, evalCtx) {
			continue
		}
		row, ok := e.Row.(*capability.DBRow)
		if !ok {
			continue
		}
		if !row.ActionEnabled(dbReq.Action) {
			continue
		}
		if !dbTargetMatches(row, dbReq) {
			continue
		}
		if len(dbReq.Columns) > 0 && !dbColumnsAllowed(row, dbReq) {
			// The entry covered this action and target; only the column
			// policy blocked it. Remember that for the deny reason.
			columnViolation = true
			continue
		}
		return capability.Allow(capability.TypeDB, e.ID)
	}

	if columnViolation {
		return capability.Deny(capability.ReasonColumnPolicy)
	}
	return capability.Deny(capability.ReasonNoMatch)
}

// dbTargetMatches enforces model/table equality when both the row and the
// request constrain the same axis.
func dbTargetMatches(row *capability.DBRow, req capability.DBRequest) bool {
	if req.Model != "" && row.Model != "" && !strings.EqualFold(req.Model, row.Model) {
		return false
	}
	if req.Table != "" && row.Table != "" && !strings.EqualFold(req.Table, row.Table) {
		return false
	}
	return true
}

// dbColumnsAllowed applies the column policy: writes must stay inside the
// writable set, everything else inside the readable set. A column being
// readable never makes it writable.
func dbColumnsAllowed(row *capability.DBRow, req capability.DBRequest) bool {
	switch req.Action {
	case "insert", "update":
		return capability.ColumnsAllowed(req.Columns, row.WritableColumns)
	default:
		return capability.ColumnsAllowed(req.Columns, row.ReadableColumns)
	}
}
