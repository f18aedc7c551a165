package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/plugwarden/plugwarden/internal/application/ports"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// revisionEnc produces deterministic CBOR for the snapshot revision hash.
var revisionEnc cbor.EncMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("services: canonical cbor mode: %v", err))
	}
	revisionEnc = mode
}

// Compiler builds the per-plugin compiled capability snapshot: direct and
// tag assignments merged with direct-wins precedence, deduplicated,
// active- and time-window-filtered, hydrated, and sorted for determinism.
type Compiler struct {
	repo  repositories.CapabilityRepository
	clock ports.Clock
}

// NewCompiler creates a snapshot compiler.
func NewCompiler(repo repositories.CapabilityRepository, clock ports.Clock) *Compiler {
	return &Compiler{repo: repo, clock: clock}
}

// Compile fetches and merges the plugin's assignments into a snapshot.
// Entries whose concrete row is gone (dangling reference) are dropped
// silently; within each type entries are in ascending concrete-id order.
func (c *Compiler) Compile(ctx context.Context, pluginID string) (*capability.Snapshot, error) {
	direct, err := c.repo.DirectAssignments(ctx, pluginID)
	if err != nil {
		return nil, fmt.Errorf("direct assignments for %s: %w", pluginID, err)
	}
	tagged, err := c.repo.TagAssignments(ctx, pluginID)
	if err != nil {
		return nil, fmt.Errorf("tag assignments for %s: %w", pluginID, err)
	}

	// Merge keyed by type:id. A direct entry always wins over a tag entry
	// for the same key; within one source the first write wins (the merge
	// is a set union, no order is defined).
	merged := make(map[string]capability.Assignment, len(direct)+len(tagged))
	for _, a := range direct {
		key := mergeKey(a)
		if _, ok := merged[key]; !ok {
			merged[key] = a
		}
	}
	for _, a := range tagged {
		key := mergeKey(a)
		if _, ok := merged[key]; !ok {
			merged[key] = a
		}
	}

	now := c.clock.Now()
	byType := make(map[capability.Type][]capability.Assignment)
	for _, a := range merged {
		if !a.Active {
			continue
		}
		if !capability.WindowActive(a.Window, a.CreatedAt, now) {
			continue
		}
		byType[a.Type] = append(byType[a.Type], a)
	}

	entries := make(map[capability.Type][]capability.Entry, len(byType))
	for t, assigns := range byType {
		ids := make([]int64, 0, len(assigns))
		for _, a := range assigns {
			ids = append(ids, a.ConcreteID)
		}
		rows, err := c.repo.ConcreteByType(ctx, t, ids)
		if err != nil {
			return nil, fmt.Errorf("hydrate %s rows for %s: %w", t, pluginID, err)
		}
		for _, a := range assigns {
			row, ok := rows[a.ConcreteID]
			if !ok {
				continue
			}
			entries[t] = append(entries[t], capability.Entry{
				ID:          a.ConcreteID,
				Row:         row,
				Constraints: a.Constraints,
				Audit:       a.Audit,
				Active:      true,
				Source:      a.Source,
			})
		}
		sort.Slice(entries[t], func(i, j int) bool { return entries[t][i].ID < entries[t][j].ID })
		if len(entries[t]) == 0 {
			delete(entries, t)
		}
	}

	snap := &capability.Snapshot{
		PluginID:   pluginID,
		Entries:    entries,
		CompiledAt: now,
	}
	revision, err := snapshotRevision(snap)
	if err != nil {
		return nil, err
	}
	snap.Revision = revision
	return snap, nil
}

func mergeKey(a capability.Assignment) string {
	return fmt.Sprintf("%s:%d", a.Type, a.ConcreteID)
}

// snapshotRevision derives the content hash consumers use as an ETag. The
// projection walks types in stable order and carries row content, so the
// revision changes exactly when the compiled view changes.
func snapshotRevision(snap *capability.Snapshot) (string, error) {
	type revEntry struct {
		Type        string         `cbor:"type"`
		ID          int64          `cbor:"id"`
		Attrs       map[string]any `cbor:"attrs"`
		Constraints map[string]any `cbor:"constraints,omitempty"`
	}

	projection := make([]revEntry, 0)
	for _, t := range capability.AllTypes() {
		for _, e := range snap.ForType(t) {
			attrs, err := capability.RowAttributes(e.Row)
			if err != nil {
				return "", err
			}
			projection = append(projection, revEntry{
				Type:        string(t),
				ID:          e.ID,
				Attrs:       attrs,
				Constraints: e.Constraints,
			})
		}
	}

	raw, err := revisionEnc.Marshal(projection)
	if err != nil {
		return "", fmt.Errorf("snapshot revision for %s: %w", snap.PluginID, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
