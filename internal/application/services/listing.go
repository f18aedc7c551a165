package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/plugwarden/plugwarden/internal/application/dto"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

// ListPermissions aggregates direct and tag assignments per concrete row
// for UIs and approval workflows. Unlike compilation, nothing is collapsed
// away: pending, inactive, and time-expired grants stay visible, each
// source annotated with whether it is currently effective.
func (s *PermissionService) ListPermissions(ctx context.Context, pluginID string, opts dto.ListOptions) (dto.PermissionListing, error) {
	direct, err := s.repo.DirectAssignments(ctx, pluginID)
	if err != nil {
		return dto.PermissionListing{}, fmt.Errorf("direct assignments for %s: %w", pluginID, err)
	}
	tagged, err := s.repo.TagAssignments(ctx, pluginID)
	if err != nil {
		return dto.PermissionListing{}, fmt.Errorf("tag assignments for %s: %w", pluginID, err)
	}

	now := s.clock.Now()

	type groupKey struct {
		t  capability.Type
		id int64
	}
	groups := make(map[groupKey]*dto.ListedPermission)
	order := make([]groupKey, 0)

	addSource := func(a capability.Assignment) {
		key := groupKey{t: a.Type, id: a.ConcreteID}
		group, ok := groups[key]
		if !ok {
			group = &dto.ListedPermission{Type: a.Type, ConcreteID: a.ConcreteID}
			groups[key] = group
			order = append(order, key)
		}
		group.Sources = append(group.Sources, dto.ListedSource{
			Source:    a.Source,
			Active:    a.Active,
			Effective: a.Active && capability.WindowActive(a.Window, a.CreatedAt, now),
			Window:    a.Window,
			Tag:       a.Tag,
			CreatedAt: a.CreatedAt,
		})
		if a.Source == capability.SourceDirect && constraintRequired(a.Constraints) {
			group.Required = true
		}
	}
	for _, a := range direct {
		addSource(a)
	}
	for _, a := range tagged {
		addSource(a)
	}

	// Batch-hydrate rows per type; a group whose row is gone cannot be
	// presented and is dropped, matching compilation.
	idsByType := make(map[capability.Type][]int64)
	for _, key := range order {
		idsByType[key.t] = append(idsByType[key.t], key.id)
	}
	rowsByType := make(map[capability.Type]map[int64]capability.ConcreteRow, len(idsByType))
	for t, ids := range idsByType {
		if t == capability.TypeRoute {
			continue
		}
		rows, err := s.repo.ConcreteByType(ctx, t, ids)
		if err != nil {
			return dto.PermissionListing{}, fmt.Errorf("hydrate %s rows for %s: %w", t, pluginID, err)
		}
		rowsByType[t] = rows
	}

	listing := dto.PermissionListing{
		PluginID: pluginID,
		Summary:  dto.ListSummary{ByType: make(map[capability.Type]int)},
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].t != order[j].t {
			return typeOrder(order[i].t) < typeOrder(order[j].t)
		}
		return order[i].id < order[j].id
	})

	for _, key := range order {
		group := groups[key]
		row, ok := rowsByType[key.t][key.id]
		if !ok {
			continue
		}
		group.Row = row
		group.EffectiveActions = capability.EnabledActions(row)
		for _, src := range group.Sources {
			if src.Effective {
				group.ActiveEffective = true
				break
			}
		}

		if !matchesListOptions(group, opts) {
			continue
		}

		listing.Permissions = append(listing.Permissions, *group)
		listing.Summary.Total++
		listing.Summary.ByType[group.Type]++
		if group.ActiveEffective {
			listing.Summary.Active++
		} else {
			listing.Summary.Inactive++
		}
		if group.Required {
			if group.ActiveEffective {
				listing.Summary.RequiredSatisfied++
			} else {
				listing.Summary.RequiredPending++
			}
		}
	}

	return listing, nil
}

func matchesListOptions(group *dto.ListedPermission, opts dto.ListOptions) bool {
	if opts.Type != "" && group.Type != opts.Type {
		return false
	}
	if opts.RequiredOnly && !group.Required {
		return false
	}
	if opts.ActiveOnly && !group.ActiveEffective {
		return false
	}
	if opts.Source != "" {
		found := false
		for _, src := range group.Sources {
			if src.Source == opts.Source {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.TagID != 0 {
		found := false
		for _, src := range group.Sources {
			if src.Tag != nil && src.Tag.ID == opts.TagID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func constraintRequired(constraints map[string]any) bool {
	if constraints == nil {
		return false
	}
	required, _ := constraints["required"].(bool)
	return required
}

func typeOrder(t capability.Type) int {
	for i, known := range capability.AllTypes() {
		if known == t {
			return i
		}
	}
	return len(capability.AllTypes())
}
