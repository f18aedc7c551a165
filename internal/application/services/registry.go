// Package services wires the permission engine together: the capability
// registry, manifest ingestion orchestration, snapshot compilation, and
// the permission service facade hosts embed.
package services

import (
	"github.com/plugwarden/plugwarden/internal/application/ingest"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
	"github.com/plugwarden/plugwarden/internal/domain/decision"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// Registry maps a capability type to its checker and ingestor. Dispatch
// keys on the type tag; there is no reflection.
type Registry struct {
	checkers  map[capability.Type]decision.Checker
	ingestors map[capability.Type]ingest.Ingestor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		checkers:  make(map[capability.Type]decision.Checker),
		ingestors: make(map[capability.Type]ingest.Ingestor),
	}
}

// RegisterChecker adds or replaces the checker for its type.
func (r *Registry) RegisterChecker(c decision.Checker) {
	r.checkers[c.Type()] = c
}

// RegisterIngestor adds or replaces the ingestor for its type.
func (r *Registry) RegisterIngestor(i ingest.Ingestor) {
	r.ingestors[i.Type()] = i
}

// Checker resolves the checker for a capability type.
func (r *Registry) Checker(t capability.Type) (decision.Checker, bool) {
	c, ok := r.checkers[t]
	return c, ok
}

// Ingestor resolves the ingestor for a capability type.
func (r *Registry) Ingestor(t capability.Type) (ingest.Ingestor, bool) {
	i, ok := r.ingestors[t]
	return i, ok
}

// DefaultRegistry wires the seven checkers and ingestors against the given
// collaborators.
func DefaultRegistry(snapshots decision.SnapshotProvider, repo repositories.CapabilityRepository, conds conditions.Evaluator) *Registry {
	r := NewRegistry()

	r.RegisterChecker(decision.NewDBChecker(snapshots, conds))
	r.RegisterChecker(decision.NewFileChecker(snapshots, conds))
	r.RegisterChecker(decision.NewNotificationChecker(snapshots, conds))
	r.RegisterChecker(decision.NewModuleChecker(snapshots, conds))
	r.RegisterChecker(decision.NewNetworkChecker(snapshots, conds))
	r.RegisterChecker(decision.NewCodecChecker(snapshots, conds))
	r.RegisterChecker(decision.NewRouteChecker(repo))

	r.RegisterIngestor(ingest.NewDBIngestor(repo))
	r.RegisterIngestor(ingest.NewFileIngestor(repo))
	r.RegisterIngestor(ingest.NewNotificationIngestor(repo))
	r.RegisterIngestor(ingest.NewModuleIngestor(repo))
	r.RegisterIngestor(ingest.NewNetworkIngestor(repo))
	r.RegisterIngestor(ingest.NewCodecIngestor(repo))
	r.RegisterIngestor(ingest.NewRouteIngestor(repo))

	return r
}
