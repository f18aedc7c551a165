// Package audit provides audit trail emitters. The engine treats emission
// as fire-and-forget: an emitter failure must never change a decision or
// fail an ingest.
package audit

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/plugwarden/plugwarden/internal/application/ports"
)

// Ensure interface compliance
var _ ports.AuditEmitter = (*SlogEmitter)(nil)

const redactedPlaceholder = "[REDACTED]"

// SlogEmitter writes audit records as structured log lines. Redaction
// fields from the matched grant's audit metadata are applied to the
// request payload before logging.
type SlogEmitter struct {
	logger *slog.Logger
}

// NewSlogEmitter creates an emitter over the given logger.
func NewSlogEmitter(logger *slog.Logger) *SlogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEmitter{logger: logger}
}

// Record logs one audit entry.
func (e *SlogEmitter) Record(ctx context.Context, entry ports.AuditEntry) {
	attrs := []slog.Attr{
		slog.String("audit_id", uuid.NewString()),
		slog.String("action", entry.Action),
		slog.String("plugin_id", entry.PluginID),
		slog.Any("request", RedactFields(entry.Request, entry.RedactFields)),
		slog.Any("decision", entry.Decision),
	}
	if entry.CapabilityType != "" {
		attrs = append(attrs, slog.String("capability_type", string(entry.CapabilityType)))
	}
	if len(entry.Tags) > 0 {
		attrs = append(attrs, slog.Any("tags", entry.Tags))
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "capability audit", attrs...)
}

// RedactFields returns a copy of payload with the named fields replaced.
// Field names may be dotted paths into nested maps ("headers.authorization").
func RedactFields(payload map[string]any, fields []string) map[string]any {
	if len(fields) == 0 || payload == nil {
		return payload
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, field := range fields {
		redactPath(out, strings.Split(field, "."))
	}
	return out
}

func redactPath(m map[string]any, path []string) {
	if len(path) == 0 {
		return
	}
	key := path[0]
	if _, ok := m[key]; !ok {
		return
	}
	if len(path) == 1 {
		m[key] = redactedPlaceholder
		return
	}
	nested, ok := m[key].(map[string]any)
	if !ok {
		// The path descends into something that is not a map; redact the
		// whole value rather than leak it.
		m[key] = redactedPlaceholder
		return
	}
	copied := make(map[string]any, len(nested))
	for k, v := range nested {
		copied[k] = v
	}
	redactPath(copied, path[1:])
	m[key] = copied
}
