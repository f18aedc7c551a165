package ingest

import (
	"context"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/manifest"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// NotificationIngestor persists notification rules: the send flag plus
// channel, template, and recipient allow-lists.
type NotificationIngestor struct {
	rowIngestor
}

// NewNotificationIngestor creates a notification ingestor.
func NewNotificationIngestor(repo repositories.CapabilityRepository) *NotificationIngestor {
	return &NotificationIngestor{rowIngestor{repo: repo}}
}

// Type returns the capability type this ingestor serves.
func (i *NotificationIngestor) Type() capability.Type { return capability.TypeNotification }

// Ingest builds the notification row from the rule.
func (i *NotificationIngestor) Ingest(ctx context.Context, pluginID string, rule manifest.Rule) (dto.RuleIngestResult, error) {
	row := &capability.NotificationRow{
		Send:       hasAction(rule.Actions, "send"),
		Channels:   targetStrings(rule.Target, "channels"),
		Templates:  targetStrings(rule.Target, "templates"),
		Recipients: targetStrings(rule.Target, "recipients"),
	}
	return i.upsertRow(ctx, pluginID, row, rule)
}
