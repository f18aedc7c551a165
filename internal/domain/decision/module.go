package decision

import (
	"context"
	"strings"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// ModuleChecker decides inter-module call requests.
type ModuleChecker struct {
	base
}

// NewModuleChecker creates a module checker.
func NewModuleChecker(snapshots SnapshotProvider, conds conditions.Evaluator) *ModuleChecker {
	return &ModuleChecker{base{snapshots: snapshots, conds: conds}}
}

// Type returns the capability type this checker serves.
func (c *ModuleChecker) Type() capability.Type { return capability.TypeModule }

// Check allows a call when the requested module names the declared FQCN or
// its alias and the requested api, when given, is in the declared api list.
// An empty api list is unrestricted.
func (c *ModuleChecker) Check(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result {
	modReq, ok := req.(capability.ModuleRequest)
	if !ok {
		return capability.Deny(capability.ReasonBadRequestType)
	}

	entries := c.entries(ctx, pluginID, capability.TypeModule)
	if len(entries) == 0 {
		return capability.Deny(capability.ReasonNoCapabilities)
	}

	for _, e := range entries {
		if !e.Active || !c.conditionsOK(ctx, e, evalCtx) {
			continue
		}
		row, ok := e.Row.(*capability.ModuleRow)
		if !ok {
			continue
		}
		if !row.Call {
			continue
		}
		if !moduleNameMatches(row, modReq.Module) {
			continue
		}
		if modReq.API != "" && !capability.ValueAllowed(modReq.API, row.APIs) {
			continue
		}
		return capability.Allow(capability.TypeModule, e.ID)
	}

	return capability.Deny(capability.ReasonNoMatch)
}

func moduleNameMatches(row *capability.ModuleRow, name string) bool {
	if name == "" {
		return false
	}
	if strings.EqualFold(name, row.Module) {
		return true
	}
	return row.Alias != "" && strings.EqualFold(name, row.Alias)
}
