// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"
	"time"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

// SnapshotCache stores compiled capability snapshots keyed by plugin id.
// Implementations must provide atomic get/put/invalidate per key; a
// snapshot is always replaced as a whole, never mutated in place. Storage
// failures must surface as misses, never as wrong answers.
type SnapshotCache interface {
	Get(pluginID string) (*capability.Snapshot, bool)
	Put(pluginID string, snap *capability.Snapshot, ttl time.Duration)
	Invalidate(pluginID string)
}

// AuditEntry is one audit trail record. RedactFields and Tags come from
// the matched capability entry's audit metadata, so manifest authors
// control what gets logged per rule.
type AuditEntry struct {
	Action         string
	CapabilityType capability.Type
	PluginID       string
	Request        map[string]any
	Decision       map[string]any
	RedactFields   []string
	Tags           []string
}

// AuditEmitter records audit entries. It is fire-and-forget from the
// engine's perspective: implementations must swallow their own failures
// rather than abort the primary operation.
type AuditEmitter interface {
	Record(ctx context.Context, entry AuditEntry)
}

// Clock abstracts the time source so time-window evaluation is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
