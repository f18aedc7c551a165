// Package manifest defines the normalized permission manifest shape the
// engine ingests. Schema validation happens upstream; by the time a
// Manifest reaches the engine its rules are structurally sound.
package manifest

import "github.com/plugwarden/plugwarden/internal/domain/capability"

// Manifest is a plugin's declared permission set.
type Manifest struct {
	// HostVersion optionally constrains the host versions this manifest is
	// written for ("^1.2", ">=2.0.0"). Enforced by the loader, not the
	// engine.
	HostVersion string `json:"host_version,omitempty" yaml:"host_version,omitempty"`

	RequiredPermissions []Rule `json:"required_permissions" yaml:"required_permissions"`
	OptionalPermissions []Rule `json:"optional_permissions,omitempty" yaml:"optional_permissions,omitempty"`
}

// Rule is one normalized permission declaration.
type Rule struct {
	Type    string   `json:"type" yaml:"type"`
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`

	// Target carries the type-specific attributes (table and columns for
	// db, hosts and schemes for network, and so on). The matching ingestor
	// projects it onto a concrete row.
	Target map[string]any `json:"target,omitempty" yaml:"target,omitempty"`

	Conditions    map[string]any         `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Constraints   map[string]any         `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Audit         *capability.AuditMeta  `json:"audit,omitempty" yaml:"audit,omitempty"`
	Justification string                 `json:"justification,omitempty" yaml:"justification,omitempty"`
	Window        *capability.TimeWindow `json:"window,omitempty" yaml:"window,omitempty"`
}

// CapabilityType returns the rule's type as a capability type.
func (r Rule) CapabilityType() capability.Type {
	return capability.Type(r.Type)
}
