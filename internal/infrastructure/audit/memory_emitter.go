package audit

import (
	"context"
	"sync"

	"github.com/plugwarden/plugwarden/internal/application/ports"
)

// Ensure interface compliance
var _ ports.AuditEmitter = (*MemoryEmitter)(nil)

// MemoryEmitter collects audit entries in memory. Useful for tests and for
// hosts that batch-forward the trail elsewhere.
type MemoryEmitter struct {
	mu      sync.Mutex
	entries []ports.AuditEntry
}

// NewMemoryEmitter creates an empty collector.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

// Record appends the entry, applying redaction the same way the slog
// emitter does so consumers never see redacted values.
func (e *MemoryEmitter) Record(_ context.Context, entry ports.AuditEntry) {
	entry.Request = RedactFields(entry.Request, entry.RedactFields)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
}

// Entries returns a copy of everything recorded so far.
func (e *MemoryEmitter) Entries() []ports.AuditEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ports.AuditEntry(nil), e.entries...)
}
