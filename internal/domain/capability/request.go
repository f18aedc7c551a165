package capability

// Request is the sealed union of typed check requests, one per capability
// type. The registry dispatches on RequestType, never on reflection.
type Request interface {
	RequestType() Type
	sealedRequest()
}

var (
	_ Request = DBRequest{}
	_ Request = FileRequest{}
	_ Request = NotificationRequest{}
	_ Request = ModuleRequest{}
	_ Request = NetworkRequest{}
	_ Request = CodecRequest{}
	_ Request = RouteRequest{}
)

// DBRequest asks whether a database action on a model/table (optionally
// restricted to specific columns) is allowed.
type DBRequest struct {
	Action  string
	Model   string
	Table   string
	Columns []string
}

func (DBRequest) RequestType() Type { return TypeDB }
func (DBRequest) sealedRequest()    {}

// FileRequest asks whether a filesystem action on a path is allowed.
type FileRequest struct {
	Action string
	Path   string
}

func (FileRequest) RequestType() Type { return TypeFile }
func (FileRequest) sealedRequest()    {}

// NotificationRequest asks whether a send on a channel is allowed.
// Template and Recipient are optional; empty values skip their allow-lists.
type NotificationRequest struct {
	Action    string
	Channel   string
	Template  string
	Recipient string
}

func (NotificationRequest) RequestType() Type { return TypeNotification }
func (NotificationRequest) sealedRequest()    {}

// ModuleRequest asks whether a call into another module is allowed.
// Module may name the declared FQCN or its alias.
type ModuleRequest struct {
	Module string
	API    string
}

func (ModuleRequest) RequestType() Type { return TypeModule }
func (ModuleRequest) sealedRequest()    {}

// NetworkRequest asks whether an outbound HTTP call is allowed.
type NetworkRequest struct {
	Method  string
	URL     string
	Headers map[string]string
}

func (NetworkRequest) RequestType() Type { return TypeNetwork }
func (NetworkRequest) sealedRequest()    {}

// CodecRequest asks whether a codec method invocation is allowed.
// TargetClass is only meaningful for unserialize.
type CodecRequest struct {
	Method      string
	TargetClass string
}

func (CodecRequest) RequestType() Type { return TypeCodec }
func (CodecRequest) sealedRequest()    {}

// RouteRequest asks whether the plugin may register the given route.
// Guard, when set, must match a guard locked on the approval.
type RouteRequest struct {
	RouteID string
	Guard   string
}

func (RouteRequest) RequestType() Type { return TypeRoute }
func (RouteRequest) sealedRequest()    {}
