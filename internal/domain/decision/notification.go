package decision

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// NotificationChecker decides notification-send requests against channel,
// template, and recipient allow-lists.
type NotificationChecker struct {
	base
}

// NewNotificationChecker creates a notification checker.
func NewNotificationChecker(snapshots SnapshotProvider, conds conditions.Evaluator) *NotificationChecker {
	return &NotificationChecker{base{snapshots: snapshots, conds: conds}}
}

// Type returns the capability type this checker serves.
func (c *NotificationChecker) Type() capability.Type { return capability.TypeNotification }

// Check allows a send when the channel is declared and the template and
// recipient, when given, sit inside their allow-lists. An empty allow-list
// is unrestricted.
func (c *NotificationChecker) Check(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result {
	notifReq, ok := req.(capability.NotificationRequest)
	if !ok {
		return capability.Deny(capability.ReasonBadRequestType)
	}

	entries := c.entries(ctx, pluginID, capability.TypeNotification)
	if len(entries) == 0 {
		return capability.Deny(capability.ReasonNoCapabilities)
	}

	for _, e := range entries {
		if !e.Active || !c.conditionsOK(ctx, e, evalCtx) {
			continue
		}
		row, ok := e.Row.(*capability.NotificationRow)
		if !ok {
			continue
		}
		if notifReq.Action != "send" || !row.Send {
			continue
		}
		if !capability.ValueAllowed(notifReq.Channel, row.Channels) {
			continue
		}
		if notifReq.Template != "" && !capability.ValueAllowed(notifReq.Template, row.Templates) {
			continue
		}
		if notifReq.Recipient != "" && !capability.ValueAllowed(notifReq.Recipient, row.Recipients) {
			continue
		}
		return capability.Allow(capability.TypeNotification, e.ID)
	}

	return capability.Deny(capability.ReasonNoMatch)
}
