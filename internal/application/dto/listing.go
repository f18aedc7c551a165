package dto

import (
	"time"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

// ListOptions filters the permission listing. Zero values mean "no filter".
type ListOptions struct {
	// Type restricts the listing to one capability type.
	Type capability.Type
	// RequiredOnly keeps only grants marked required by a direct source.
	RequiredOnly bool
	// ActiveOnly keeps only grants with at least one effectively active source.
	ActiveOnly bool
	// Source keeps grants that have at least one source of the given kind.
	Source capability.Source
	// TagID keeps grants carried by the given tag.
	TagID int64
}

// ListedSource is one assignment source (direct or via tag) for a grant,
// shown without active/time-window filtering so pending and inactive
// grants stay visible.
type ListedSource struct {
	Source    capability.Source      `json:"source"`
	Active    bool                   `json:"active"`
	Effective bool                   `json:"effective"`
	Window    *capability.TimeWindow `json:"window,omitempty"`
	Tag       *capability.TagRef     `json:"tag,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
}

// ListedPermission aggregates every source pointing at one concrete row.
type ListedPermission struct {
	Type             capability.Type        `json:"type"`
	ConcreteID       int64                  `json:"concrete_id"`
	Row              capability.ConcreteRow `json:"row"`
	EffectiveActions []string               `json:"effective_actions,omitempty"`
	Sources          []ListedSource         `json:"sources"`
	Required         bool                   `json:"required"`
	ActiveEffective  bool                   `json:"active_effective"`
}

// ListSummary counts the listing for dashboards.
type ListSummary struct {
	Total             int                     `json:"total"`
	ByType            map[capability.Type]int `json:"by_type,omitempty"`
	Active            int                     `json:"active"`
	Inactive          int                     `json:"inactive"`
	RequiredSatisfied int                     `json:"required_satisfied"`
	RequiredPending   int                     `json:"required_pending"`
}

// PermissionListing is the aggregated, read-only view of a plugin's grants.
type PermissionListing struct {
	PluginID    string             `json:"plugin_id"`
	Permissions []ListedPermission `json:"permissions"`
	Summary     ListSummary        `json:"summary"`
}
