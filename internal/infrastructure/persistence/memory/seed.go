package memory

import (
	"fmt"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

// Host-side mutations the engine itself never performs: tag management,
// activation toggles, route approval. Tests and embedding hosts use these.

// CreateTag registers a permission tag and returns its reference.
func (r *CapabilityRepository) CreateTag(name string) capability.TagRef {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTagID++
	tag := capability.TagRef{ID: r.nextTagID, Name: name}
	r.tags[tag.ID] = tag
	return tag
}

// AddPluginToTag makes the plugin a member of the tag.
func (r *CapabilityRepository) AddPluginToTag(pluginID string, tagID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tagMembers[pluginID] = append(r.tagMembers[pluginID], tagID)
}

// UpsertForTag finds or creates the concrete row by natural key and
// attaches it to the tag, mirroring UpsertForPlugin for tag grants.
func (r *CapabilityRepository) UpsertForTag(tagID int64, dto capability.UpsertDTO, meta capability.AssignmentMeta) (capability.UpsertResult, error) {
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

	for _, a := range r.tagGrants[tagID] {
		if a.Type == ref.t && a.ConcreteID == ref.id {
			result.PermissionID = a.ID
			return result, nil
		}
	}

	r.nextAssignmentID++
	r.tagGrants[tagID] = append(r.tagGrants[tagID], capability.Assignment{
		ID:          r.nextAssignmentID,
		Type:        ref.t,
		ConcreteID:  ref.id,
		Source:      capability.SourceTag,
		Active:      true,
		Window:      meta.Window,
		Constraints: meta.EffectiveConstraints(),
		Audit:       meta.Audit,
		CreatedAt:   r.now(),
	})
	result.PermissionID = r.nextAssignmentID
	result.Assigned = true
	return result, nil
}

// SetDirectActive toggles a direct assignment's active flag.
func (r *CapabilityRepository) SetDirectActive(pluginID string, t capability.Type, concreteID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.direct[pluginID] {
		if a.Type == t && a.ConcreteID == concreteID {
			r.direct[pluginID][i].Active = active
			return nil
		}
	}
	return fmt.Errorf("no direct %s assignment to row %d for plugin %s", t, concreteID, pluginID)
}

// SetDirectWindow attaches a time window to a direct assignment.
func (r *CapabilityRepository) SetDirectWindow(pluginID string, t capability.Type, concreteID int64, window *capability.TimeWindow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.direct[pluginID] {
		if a.Type == t && a.ConcreteID == concreteID {
			r.direct[pluginID][i].Window = window
			return nil
		}
	}
	return fmt.Errorf("no direct %s assignment to row %d for plugin %s", t, concreteID, pluginID)
}

// SetRouteStatus resolves a declared route's approval, optionally locking
// a guard on it.
func (r *CapabilityRepository) SetRouteStatus(pluginID, routeID, status, guard string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	approval, ok := r.routes[pluginID][routeID]
	if !ok {
		return fmt.Errorf("route %s is not declared by plugin %s", routeID, pluginID)
	}
	approval.Status = status
	approval.Guard = guard
	return nil
}

// DeleteRow removes a concrete row, leaving assignments dangling. Tests
// use it to exercise the compiler's dangling-reference handling.
func (r *CapabilityRepository) DeleteRow(t capability.Type, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows[t], id)
	for key, ref := range r.rowKeys {
		if ref.t == t && ref.id == id {
			delete(r.rowKeys, key)
		}
	}
}
