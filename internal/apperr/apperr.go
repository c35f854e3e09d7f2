// Package apperr defines the engine's error taxonomy. These are error
// kinds, not exhaustive types: callers use errors.As against the handful
// of structs below and switch on Kind where a single struct covers several
// related failures.
package apperr

import "fmt"

// Kind classifies an error for HTTP status mapping and logging.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindGraphEndpoint   Kind = "graph_endpoint"
	KindTaskState       Kind = "task_state"
	KindEmbeddingShape  Kind = "embedding_shape"
	KindTransport       Kind = "transport"
	KindSnapshotCorrupt Kind = "snapshot_corrupt"
	KindSnapshotIO      Kind = "snapshot_io"
	KindCapacity        Kind = "capacity"
	KindAlreadyInvalid  Kind = "already_invalid"
	KindForbidden       Kind = "forbidden"
)

// Error is the concrete error type carrying a Kind plus context.
type Error struct {
	Kind     Kind
	Resource string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.NotFound) match any *Error of that Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Resource == "" && t.Message == ""
}

func NotFound(resource string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, Message: fmt.Sprintf("%v not found", id)}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Resource: field, Message: message}
}

func GraphEndpoint(message string) *Error {
	return &Error{Kind: KindGraphEndpoint, Message: message}
}

func TaskState(message string) *Error {
	return &Error{Kind: KindTaskState, Message: message}
}

func EmbeddingShape(message string) *Error {
	return &Error{Kind: KindEmbeddingShape, Message: message}
}

func Transport(message string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

func SnapshotCorrupt(message string, err error) *Error {
	return &Error{Kind: KindSnapshotCorrupt, Message: message, Err: err}
}

func SnapshotIO(message string, err error) *Error {
	return &Error{Kind: KindSnapshotIO, Message: message, Err: err}
}

func Capacity(message string) *Error {
	return &Error{Kind: KindCapacity, Message: message}
}

// Forbidden reports that an access-policy check (internal/policy) denied
// the operation.
func Forbidden(resource, message string) *Error {
	return &Error{Kind: KindForbidden, Resource: resource, Message: message}
}

// AlreadyInvalid reports that an invalidate call targeted an already-invalid
// memory. Distinguished from NotFound/Validation so callers can special-case
// it (spec.md §4.4: invalidate returns NotFound | AlreadyInvalid | Ok).
func AlreadyInvalid(id uint64) *Error {
	return &Error{Kind: KindAlreadyInvalid, Resource: "memory", Message: fmt.Sprintf("memory %d already invalid", id)}
}
