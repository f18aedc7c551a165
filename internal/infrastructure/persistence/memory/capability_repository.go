// Package memory provides the in-memory implementation of the capability
// repository. Useful for testing and ephemeral storage.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
)

// Ensure interface compliance
var _ repositories.CapabilityRepository = (*CapabilityRepository)(nil)

type rowRef struct {
	t  capability.Type
	id int64
}

// CapabilityRepository keeps every table the engine needs in maps guarded
// by one lock: concrete rows keyed by natural key, direct assignments, tag
// membership and tag grants, and route approvals.
type CapabilityRepository struct {
	mu sync.RWMutex

	rows    map[capability.Type]map[int64]capability.ConcreteRow
	rowKeys map[string]rowRef

	direct     map[string][]capability.Assignment
	tags       map[int64]capability.TagRef
	tagMembers map[string][]int64
	tagGrants  map[int64][]capability.Assignment

	routes map[string]map[string]*capability.RouteApproval

	nextRowID        int64
	nextAssignmentID int64
	nextTagID        int64
	nextRouteID      int64

	now func() time.Time
}

// NewCapabilityRepository creates an empty repository.
func NewCapabilityRepository() *CapabilityRepository {
	return &CapabilityRepository{
		rows:       make(map[capability.Type]map[int64]capability.ConcreteRow),
		rowKeys:    make(map[string]rowRef),
		direct:     make(map[string][]capability.Assignment),
		tags:       make(map[int64]capability.TagRef),
		tagMembers: make(map[string][]int64),
		tagGrants:  make(map[int64][]capability.Assignment),
		routes:     make(map[string]map[string]*capability.RouteApproval),
		now:        time.Now,
	}
}

// SetClock overrides the time source; tests use it to pin created
// timestamps for time-window cases.
func (r *CapabilityRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// DirectAssignments returns the plugin's direct grants.
func (r *CapabilityRepository) DirectAssignments(_ context.Context, pluginID string) ([]capability.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]capability.Assignment(nil), r.direct[pluginID]...), nil
}

// TagAssignments returns grants inherited through tag membership, each
// annotated with its tag reference.
func (r *CapabilityRepository) TagAssignments(_ context.Context, pluginID string) ([]capability.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []capability.Assignment
	for _, tagID := range r.tagMembers[pluginID] {
		tag := r.tags[tagID]
		for _, a := range r.tagGrants[tagID] {
			a.Source = capability.SourceTag
			a.Tag = &capability.TagRef{ID: tag.ID, Name: tag.Name}
			out = append(out, a)
		}
	}
	return out, nil
}

// ConcreteByType batch-hydrates rows of one type. Unknown ids are absent
// from the result.
func (r *CapabilityRepository) ConcreteByType(_ context.Context, t capability.Type, ids []int64) (map[int64]capability.ConcreteRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]capability.ConcreteRow, len(ids))
	for _, id := range ids {
		// Rows are stored and returned by pointer; callers treat them as
		// immutable after creation.
		if row, ok := r.rows[t][id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

// UpsertForPlugin finds or creates the concrete row by natural key, then
// ensures a direct assignment. Both halves are idempotent.
func (r *CapabilityRepository) UpsertForPlugin(_ context.Context, pluginID string, dto capability.UpsertDTO, meta capability.AssignmentMeta) (capability.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, created, err := r.findOrCreateRow(dto)
	if err != nil {
		return capability.UpsertResult{}, err
	}

	result := capability.UpsertResult{
		PermissionType: dto.Type,
		ConcreteID:     ref.id,
		ConcreteType:   ref.t,
		Created:        created,
	}

	for _, a := range r.direct[pluginID] {
		if a.Type == ref.t && a.ConcreteID == ref.id {
			result.PermissionID = a.ID
			return result, nil
		}
	}

	r.nextAssignmentID++
	assignment := capability.Assignment{
		ID:          r.nextAssignmentID,
		Type:        ref.t,
		ConcreteID:  ref.id,
		Source:      capability.SourceDirect,
		Active:      true,
		Window:      meta.Window,
		Constraints: meta.EffectiveConstraints(),
		Audit:       meta.Audit,
		CreatedAt:   r.now(),
	}
	r.direct[pluginID] = append(r.direct[pluginID], assignment)

	result.PermissionID = assignment.ID
	result.Assigned = true
	return result, nil
}

// RoutePermission returns the approval for one declared route, or nil.
func (r *CapabilityRepository) RoutePermission(_ context.Context, pluginID, routeID string) (*capability.RouteApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	approval, ok := r.routes[pluginID][routeID]
	if !ok {
		return nil, nil
	}
	copied := *approval
	return &copied, nil
}

// DeclareRoute records a pending approval for the route if none exists.
func (r *CapabilityRepository) DeclareRoute(_ context.Context, pluginID, routeID string, _ capability.AssignmentMeta) (*capability.RouteApproval, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.routes[pluginID] == nil {
		r.routes[pluginID] = make(map[string]*capability.RouteApproval)
	}
	if existing, ok := r.routes[pluginID][routeID]; ok {
		copied := *existing
		return &copied, false, nil
	}

	r.nextRouteID++
	approval := &capability.RouteApproval{
		ID:      r.nextRouteID,
		RouteID: routeID,
		Status:  capability.RoutePending,
	}
	r.routes[pluginID][routeID] = approval

	copied := *approval
	return &copied, true, nil
}

func (r *CapabilityRepository) findOrCreateRow(dto capability.UpsertDTO) (rowRef, bool, error) {
	if ref, ok := r.rowKeys[dto.NaturalKey]; ok {
		return ref, false, nil
	}

	r.nextRowID++
	id := r.nextRowID

	// Re-hydrate through the attribute codec so the stored row is a copy
	// with its id set, not the caller's pointer.
	attrs, err := capability.RowAttributes(dto.Row)
	if err != nil {
		return rowRef{}, false, err
	}
	row, err := capability.RowFromAttributes(dto.Type, id, attrs)
	if err != nil {
		return rowRef{}, false, err
	}

	if r.rows[dto.Type] == nil {
		r.rows[dto.Type] = make(map[int64]capability.ConcreteRow)
	}
	r.rows[dto.Type][id] = row

	ref := rowRef{t: dto.Type, id: id}
	r.rowKeys[dto.NaturalKey] = ref
	return ref, true, nil
}
