// Package capability defines the domain types for the permission engine:
// the capability type enumeration, concrete permission rows, typed check
// requests, decision results, assignments, and compiled snapshots.
package capability

// Type identifies one of the seven capability domains.
type Type string

const (
	// TypeDB grants access to models/tables with column-level policy.
	TypeDB Type = "db"
	// TypeFile grants sandboxed filesystem access.
	TypeFile Type = "file"
	// TypeNotification grants sending on declared channels.
	TypeNotification Type = "notification"
	// TypeModule grants calls into other host modules.
	TypeModule Type = "module"
	// TypeNetwork grants outbound network calls against allow-lists.
	TypeNetwork Type = "network"
	// TypeCodec grants serialization/deserialization primitives.
	TypeCodec Type = "codec"
	// TypeRoute grants route-registration rights, gated by approvals.
	TypeRoute Type = "route"
)

// AllTypes returns the closed set of capability types in stable order.
func AllTypes() []Type {
	return []Type{TypeDB, TypeFile, TypeNotification, TypeModule, TypeNetwork, TypeCodec, TypeRoute}
}

// Valid reports whether t is a known capability type.
func (t Type) Valid() bool {
	switch t {
	case TypeDB, TypeFile, TypeNotification, TypeModule, TypeNetwork, TypeCodec, TypeRoute:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Reason is a deny reason from the closed taxonomy. A deny is a normal
// outcome, never an error.
type Reason string

const (
	ReasonBadRequestType     Reason = "bad_request_type"
	ReasonNoCapabilities     Reason = "no_capabilities"
	ReasonNoMatch            Reason = "no_match"
	ReasonColumnPolicy       Reason = "column_policy_violation"
	ReasonRouteNotDeclared   Reason = "route_not_declared"
	ReasonRouteNotApproved   Reason = "route_not_approved"
	ReasonGuardMismatch      Reason = "guard_mismatch"
	ReasonCheckerUnavailable Reason = "checker_unavailable"
	ReasonUnknownRequestType Reason = "unknown_request_type"
)

// MatchRef identifies the capability entry that satisfied a check.
type MatchRef struct {
	Type Type  `json:"type"`
	ID   int64 `json:"id"`
}

// Result is the uniform outcome of a capability check.
type Result struct {
	Allowed bool           `json:"allowed"`
	Reason  Reason         `json:"reason,omitempty"`
	Matched *MatchRef      `json:"matched,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Allow builds an allowed result referencing the matched entry.
func Allow(t Type, id int64) Result {
	return Result{Allowed: true, Matched: &MatchRef{Type: t, ID: id}}
}

// Deny builds a denied result with the given reason.
func Deny(reason Reason) Result {
	return Result{Allowed: false, Reason: reason}
}
