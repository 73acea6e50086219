package types

import "fmt"

// Op is a pending local change recorded in the operation log.
type Op string

const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
	OpModify Op = "modify"
)

// Valid reports whether op is one of the three known operations.
func (op Op) Valid() bool {
	switch op {
	case OpCreate, OpDelete, OpModify:
		return true
	}
	return false
}

// Tag marks special objects in the remote tree. Tags are stored as an
// app property and matched by equality, never by substring.
type Tag string

const (
	// TagNone is an ordinary vault object.
	TagNone Tag = ""
	// TagRoot marks the synchronization root container itself.
	TagRoot Tag = "root"
	// TagConfig marks host-application configuration objects, which are
	// synced by path set rather than by subtree location.
	TagConfig Tag = "config"
)

// App property keys attached to every synced Drive object.
const (
	PropPath = "path"
	PropTag  = "tag"
)

// DriveObject is the engine's view of a remote file or folder.
type DriveObject struct {
	ID           string
	Name         string
	MimeType     string
	Description  string
	Starred      bool
	Path         string // value of the "path" app property
	Tag          Tag
	ModifiedTime string // RFC 3339, remote-authoritative
}

// IsFolder reports whether the object is a Drive folder.
func (o *DriveObject) IsFolder() bool {
	return o.MimeType == MimeTypeFolder
}

// MimeTypeFolder is the Drive folder sentinel mime type.
const MimeTypeFolder = "application/vnd.google-apps.folder"

// RequestType categorizes remote operations for logging.
type RequestType string

const (
	RequestTypeSearch RequestType = "search"
	RequestTypeCreate RequestType = "create"
	RequestTypeUpdate RequestType = "update"
	RequestTypeDelete RequestType = "delete"
	RequestTypeGet    RequestType = "get"
)

// RequestContext carries per-cycle tracing information through the
// remote layer.
type RequestContext struct {
	TraceID     string
	Phase       string
	RequestType RequestType
}

// CLIError is the stable error shape surfaced to users. Phase names the
// sync phase that failed ("fetching", "deleting", "creating",
// "modifying") when the error came out of the push engine.
type CLIError struct {
	Code    string
	Message string
	Phase   string
}

func (e *CLIError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Phase, e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}
