package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugwarden/plugwarden/internal/application/ports"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

func TestRedactFields_TopLevel(t *testing.T) {
	payload := map[string]any{
		"Recipient": "user@example.com",
		"Channel":   "mail",
	}

	out := RedactFields(payload, []string{"Recipient"})

	assert.Equal(t, "[REDACTED]", out["Recipient"])
	assert.Equal(t, "mail", out["Channel"])
	assert.Equal(t, "user@example.com", payload["Recipient"], "original payload is untouched")
}

func TestRedactFields_DottedPath(t *testing.T) {
	payload := map[string]any{
		"URL": "https://api.example.com/v1",
		"Headers": map[string]any{
			"Authorization": "Bearer secret",
			"Accept":        "application/json",
		},
	}

	out := RedactFields(payload, []string{"Headers.Authorization"})

	headers, ok := out["Headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", headers["Authorization"])
	assert.Equal(t, "application/json", headers["Accept"])

	original := payload["Headers"].(map[string]any)
	assert.Equal(t, "Bearer secret", original["Authorization"])
}

func TestRedactFields_PathIntoNonMapRedactsWholeValue(t *testing.T) {
	payload := map[string]any{"Columns": []any{"ssn", "email"}}

	out := RedactFields(payload, []string{"Columns.ssn"})

	assert.Equal(t, "[REDACTED]", out["Columns"])
}

func TestRedactFields_AbsentFieldIsIgnored(t *testing.T) {
	payload := map[string]any{"Path": "/var/logs/app.log"}

	out := RedactFields(payload, []string{"Recipient", "Headers.Authorization"})

	assert.Equal(t, payload, out)
}

func TestRedactFields_NoFieldsReturnsPayloadAsIs(t *testing.T) {
	payload := map[string]any{"Path": "/var/logs/app.log"}
	assert.Equal(t, payload, RedactFields(payload, nil))
	assert.Nil(t, RedactFields(nil, []string{"Path"}))
}

func TestMemoryEmitter_AppliesRedaction(t *testing.T) {
	emitter := NewMemoryEmitter()

	emitter.Record(context.Background(), ports.AuditEntry{
		Action:         "check",
		CapabilityType: capability.TypeDB,
		PluginID:       "plugin-a",
		Request:        map[string]any{"Table": "users", "Columns": []any{"ssn"}},
		Decision:       map[string]any{"allowed": true},
		RedactFields:   []string{"Columns"},
		Tags:           []string{"pii"},
	})

	entries := emitter.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "[REDACTED]", entries[0].Request["Columns"])
	assert.Equal(t, "users", entries[0].Request["Table"])
	assert.Equal(t, []string{"pii"}, entries[0].Tags)
}

func TestMemoryEmitter_EntriesReturnsCopy(t *testing.T) {
	emitter := NewMemoryEmitter()
	emitter.Record(context.Background(), ports.AuditEntry{Action: "ingest", PluginID: "plugin-a"})

	entries := emitter.Entries()
	entries[0].Action = "mutated"

	assert.Equal(t, "ingest", emitter.Entries()[0].Action)
}
