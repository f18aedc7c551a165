package decision

import (
	"context"
	"strings"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// CodecChecker decides codec/serialization primitive requests.
type CodecChecker struct {
	base
}

// NewCodecChecker creates a codec checker.
func NewCodecChecker(snapshots SnapshotProvider, conds conditions.Evaluator) *CodecChecker {
	return &CodecChecker{base{snapshots: snapshots, conds: conds}}
}

// Type returns the capability type this checker serves.
func (c *CodecChecker) Type() capability.Type { return capability.TypeCodec }

// Check allows a codec call when the method is in the resolved method list
// (or the list is the wildcard "*"). Unserialize carries an extra guard:
// when a target class is named, the entry must explicitly allow that class
// or it is skipped even though otherwise matched.
func (c *CodecChecker) Check(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result {
	codecReq, ok := req.(capability.CodecRequest)
	if !ok {
		return capability.Deny(capability.ReasonBadRequestType)
	}

	entries := c.entries(ctx, pluginID, capability.TypeCodec)
	if len(entries) == 0 {
		return capability.Deny(capability.ReasonNoCapabilities)
	}

	for _, e := range entries {
		if !e.Active || !c.conditionsOK(ctx, e, evalCtx) {
			continue
		}
		row, ok := e.Row.(*capability.CodecRow)
		if !ok {
			continue
		}
		if !row.Invoke {
			continue
		}
		if !codecMethodAllowed(codecReq.Method, row.Methods) {
			continue
		}
		if codecReq.Method == "unserialize" && codecReq.TargetClass != "" {
			if !unserializeClassAllowed(codecReq.TargetClass, row.Options.AllowUnserializeClasses) {
				continue
			}
		}
		return capability.Allow(capability.TypeCodec, e.ID)
	}

	return capability.Deny(capability.ReasonNoMatch)
}

func codecMethodAllowed(method string, methods []string) bool {
	if len(methods) == 0 {
		return true
	}
	for _, m := range methods {
		if m == "*" || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// unserializeClassAllowed is deliberately strict: no declared classes means
// no class-targeted unserialize at all.
func unserializeClassAllowed(class string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(class, a) {
			return true
		}
	}
	return false
}
