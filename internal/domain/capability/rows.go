package capability

// ConcreteRow is the materialized capability definition for one type.
// It is a sealed union: exactly one implementation exists per capability
// type (route permissions are repository-backed and have no row).
type ConcreteRow interface {
	RowID() int64
	RowType() Type
	sealedRow()
}

// Compile-time checks that every row implements the union.
var (
	_ ConcreteRow = (*DBRow)(nil)
	_ ConcreteRow = (*FileRow)(nil)
	_ ConcreteRow = (*NotificationRow)(nil)
	_ ConcreteRow = (*ModuleRow)(nil)
	_ ConcreteRow = (*NetworkRow)(nil)
	_ ConcreteRow = (*CodecRow)(nil)
)

// DBRow declares access to one model/table with column-level policy.
type DBRow struct {
	ID    int64  `json:"id"`
	Model string `json:"model,omitempty"`
	Table string `json:"table,omitempty"`

	// Permissions maps an action name (select, insert, update, delete,
	// truncate, grouped_queries) to its enabled flag.
	Permissions map[string]bool `json:"permissions,omitempty"`

	// Legacy flat flags, kept for rows persisted before the permissions
	// map existed. ActionEnabled consults the map first.
	Select         bool `json:"select,omitempty"`
	Insert         bool `json:"insert,omitempty"`
	Update         bool `json:"update,omitempty"`
	Delete         bool `json:"delete,omitempty"`
	Truncate       bool `json:"truncate,omitempty"`
	GroupedQueries bool `json:"grouped_queries,omitempty"`

	ReadableColumns []string `json:"readable_columns,omitempty"`
	WritableColumns []string `json:"writable_columns,omitempty"`
}

func (r *DBRow) RowID() int64  { return r.ID }
func (r *DBRow) RowType() Type { return TypeDB }
func (r *DBRow) sealedRow()    {}

// ActionEnabled reports whether the given db action is enabled on this row,
// consulting the permissions map first and the legacy flags second.
func (r *DBRow) ActionEnabled(action string) bool {
	if r.Permissions != nil {
		if v, ok := r.Permissions[action]; ok {
			return v
		}
	}
	switch action {
	case "select":
		return r.Select
	case "insert":
		return r.Insert
	case "update":
		return r.Update
	case "delete":
		return r.Delete
	case "truncate":
		return r.Truncate
	case "grouped_queries":
		return r.GroupedQueries
	}
	return false
}

// FileRow declares sandboxed filesystem access under a base directory.
type FileRow struct {
	ID      int64    `json:"id"`
	BaseDir string   `json:"base_dir"`
	Paths   []string `json:"paths,omitempty"`

	Read   bool `json:"read,omitempty"`
	Write  bool `json:"write,omitempty"`
	Delete bool `json:"delete,omitempty"`
	List   bool `json:"list,omitempty"`

	// FollowSymlinks controls whether symlinked paths are resolved before
	// the sandbox test. When false, symlinks are resolved so a link cannot
	// escape the sandbox.
	FollowSymlinks bool `json:"follow_symlinks,omitempty"`
}

func (r *FileRow) RowID() int64  { return r.ID }
func (r *FileRow) RowType() Type { return TypeFile }
func (r *FileRow) sealedRow()    {}

// ActionEnabled reports whether the given file action is enabled.
func (r *FileRow) ActionEnabled(action string) bool {
	switch action {
	case "read":
		return r.Read
	case "write":
		return r.Write
	case "delete":
		return r.Delete
	case "list":
		return r.List
	}
	return false
}

// NotificationRow declares sending rights on a set of channels.
type NotificationRow struct {
	ID         int64    `json:"id"`
	Send       bool     `json:"send,omitempty"`
	Channels   []string `json:"channels,omitempty"`
	Templates  []string `json:"templates,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

func (r *NotificationRow) RowID() int64  { return r.ID }
func (r *NotificationRow) RowType() Type { return TypeNotification }
func (r *NotificationRow) sealedRow()    {}

// ModuleRow declares call rights into another host module.
type ModuleRow struct {
	ID     int64    `json:"id"`
	Call   bool     `json:"call,omitempty"`
	Module string   `json:"module"`
	Alias  string   `json:"alias,omitempty"`
	APIs   []string `json:"apis,omitempty"`
}

func (r *ModuleRow) RowID() int64  { return r.ID }
func (r *ModuleRow) RowType() Type { return TypeModule }
func (r *ModuleRow) sealedRow()    {}

// NetworkRow declares outbound network access against allow-lists.
// Host patterns may carry a leading wildcard ("*.example.com").
type NetworkRow struct {
	ID                int64    `json:"id"`
	Access            bool     `json:"access,omitempty"`
	Hosts             []string `json:"hosts,omitempty"`
	Methods           []string `json:"methods,omitempty"`
	Schemes           []string `json:"schemes,omitempty"`
	Ports             []int    `json:"ports,omitempty"`
	Paths             []string `json:"paths,omitempty"`
	HeadersAllowed    []string `json:"headers_allowed,omitempty"`
	IPsAllowed        []string `json:"ips_allowed,omitempty"`
	AuthViaHostSecret bool     `json:"auth_via_host_secret,omitempty"`
}

func (r *NetworkRow) RowID() int64  { return r.ID }
func (r *NetworkRow) RowType() Type { return TypeNetwork }
func (r *NetworkRow) sealedRow()    {}

// CodecOptions carries codec-specific guards.
type CodecOptions struct {
	// AllowUnserializeClasses lists the classes an unserialize call may
	// target. An unserialize request naming a class outside this list is
	// never matched by the row, even when the method itself is allowed.
	AllowUnserializeClasses []string `json:"allow_unserialize_classes,omitempty"`
}

// CodecRow declares serialization primitive rights. Methods may be the
// wildcard "*" to allow every codec method.
type CodecRow struct {
	ID      int64        `json:"id"`
	Invoke  bool         `json:"invoke,omitempty"`
	Methods []string     `json:"methods,omitempty"`
	Options CodecOptions `json:"options,omitempty"`
}

func (r *CodecRow) RowID() int64  { return r.ID }
func (r *CodecRow) RowType() Type { return TypeCodec }
func (r *CodecRow) sealedRow()    {}

// RouteApproval is the repository-backed approval state for one declared
// route. Routes have no concrete row; the approval record is the grant.
type RouteApproval struct {
	ID      int64  `json:"id"`
	RouteID string `json:"route_id"`
	Status  string `json:"status"`
	Guard   string `json:"guard,omitempty"`
}

// Route approval statuses. Only RouteApproved permits registration.
const (
	RouteApproved = "approved"
	RoutePending  = "pending"
	RouteDenied   = "denied"
	RouteRevoked  = "revoked"
)
