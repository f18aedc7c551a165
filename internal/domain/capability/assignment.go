package capability

import "time"

// Source distinguishes how an assignment reached a plugin.
type Source string

const (
	// SourceDirect links a plugin straight to a concrete row.
	SourceDirect Source = "direct"
	// SourceTag links a plugin to a concrete row through tag membership.
	SourceTag Source = "tag"
)

// TagRef identifies a permission tag an assignment came through.
type TagRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AuditMeta controls what the audit trail records for decisions matched
// against this grant. Manifest authors set it per rule.
type AuditMeta struct {
	RedactFields []string `json:"redact_fields,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// TimeWindow bounds an assignment's activation in time, anchored to the
// assignment's created timestamp.
type TimeWindow struct {
	Limited bool   `json:"limited"`
	Type    string `json:"type,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Assignment links a plugin (directly) or a tag (indirectly) to a concrete
// permission row.
type Assignment struct {
	ID          int64
	Type        Type
	ConcreteID  int64
	Source      Source
	Active      bool
	Window      *TimeWindow
	Constraints map[string]any
	Audit       *AuditMeta
	CreatedAt   time.Time
	Tag         *TagRef
}

// AssignmentMeta is the metadata recorded alongside a new assignment during
// ingestion or ad-hoc upsert.
type AssignmentMeta struct {
	Actions       []string
	Audit         *AuditMeta
	Conditions    map[string]any
	Constraints   map[string]any
	Justification string
	Window        *TimeWindow
}

// EffectiveConstraints returns the predicate tree for runtime matching.
// Constraints wins when both are present; conditions is the older name for
// the same tree and is honored for manifests that still use it.
func (m AssignmentMeta) EffectiveConstraints() map[string]any {
	if m.Constraints != nil {
		return m.Constraints
	}
	return m.Conditions
}

// UpsertDTO carries a fully-built concrete row plus its natural key into
// the repository's find-or-create path.
type UpsertDTO struct {
	Type       Type
	NaturalKey string
	Row        ConcreteRow
}

// UpsertResult reports what the repository did for one upsert.
type UpsertResult struct {
	PermissionID   int64
	PermissionType Type
	ConcreteID     int64
	ConcreteType   Type
	Created        bool
	Assigned       bool
	Warning        string
}

// Entry is one compiled capability within a snapshot: the hydrated row plus
// the assignment attributes a checker needs.
type Entry struct {
	ID          int64
	Row         ConcreteRow
	Constraints map[string]any
	Audit       *AuditMeta
	Active      bool
	Source      Source
}

// Snapshot is the compiled, precedence-resolved, time-filtered view of one
// plugin's capabilities. It is replaced atomically as a whole and never
// mutated in place after compilation.
type Snapshot struct {
	PluginID   string
	Entries    map[Type][]Entry
	Revision   string
	CompiledAt time.Time
}

// ForType returns the compiled entries for one capability type, in
// ascending concrete-id order. Nil when the type has no entries.
func (s *Snapshot) ForType(t Type) []Entry {
	if s == nil || s.Entries == nil {
		return nil
	}
	return s.Entries[t]
}
