package polystore

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorKind classifies every error the storage layer can surface.
//
// The set is closed: services map their backend-specific failures onto one
// of these kinds, and callers branch on the kind rather than on backend
// error strings. Each kind carries a stable numeric code so the
// classification survives serialization across a process or language
// boundary (see the ffi package).
type ErrorKind int

const (
	// KindUnknown is the zero value and never produced by this module.
	// KindOf returns it only for a nil error.
	KindUnknown ErrorKind = iota

	// KindInternal indicates an unclassified backend or protocol fault.
	// It is the catch-all for errors that fit no more specific kind.
	KindInternal

	// KindUnsupported indicates the operation is not supported by the
	// backend, as declared by its Capability.
	KindUnsupported

	// KindConfigInvalid indicates construction failed: unknown scheme,
	// unknown option key, or an option value that failed validation.
	KindConfigInvalid

	// KindNotFound indicates the target path does not exist.
	KindNotFound

	// KindPermissionDenied indicates the backend rejected the caller's
	// credentials for this operation.
	KindPermissionDenied

	// KindIsADirectory indicates a file operation was applied to a
	// directory path.
	KindIsADirectory

	// KindNotADirectory indicates a directory operation was applied to a
	// file path.
	KindNotADirectory

	// KindAlreadyExists indicates the target path already exists and the
	// operation refuses to replace it.
	KindAlreadyExists

	// KindRateLimited indicates the backend throttled the request.
	// Errors of this kind are temporary.
	KindRateLimited

	// KindIsSameFile indicates copy or rename was invoked with identical
	// source and destination paths.
	KindIsSameFile

	// KindIndeterminate indicates a mutating operation was cancelled in
	// flight and its effect on the backend is unknown. Callers must not
	// assume the mutation either happened or did not happen.
	KindIndeterminate
)

// Code returns the stable numeric code for the kind. Codes are part of the
// public contract and never renumbered.
func (k ErrorKind) Code() int {
	return int(k)
}

// String returns the canonical name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindUnsupported:
		return "Unsupported"
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindNotFound:
		return "NotFound"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindIsADirectory:
		return "IsADirectory"
	case KindNotADirectory:
		return "NotADirectory"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindRateLimited:
		return "RateLimited"
	case KindIsSameFile:
		return "IsSameFile"
	case KindIndeterminate:
		return "Indeterminate"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type produced by this module.
//
// An Error carries the kind, the operation and path it occurred on, a
// human-readable message, a retryability flag, and optionally the backend
// error that caused it. Errors are built fluently:
//
//	return polystore.NewError(polystore.KindNotFound, "object missing").
//	    WithOperation("stat").
//	    WithPath(path)
//
// Error interoperates with the standard library: errors.Is matches the
// io/fs sentinels (fs.ErrNotExist for NotFound, fs.ErrExist for
// AlreadyExists, fs.ErrPermission for PermissionDenied) and
// errors.ErrUnsupported for Unsupported, and errors.As extracts *Error
// from a wrapped chain.
type Error struct {
	kind      ErrorKind
	op        string
	path      string
	message   string
	temporary bool
	cause     error
}

// NewError creates an Error of the given kind.
// RateLimited errors are temporary by default; all others are permanent
// until marked with SetTemporary.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		kind:      kind,
		message:   message,
		temporary: kind == KindRateLimited,
	}
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return NewError(kind, fmt.Sprintf(format, args...))
}

// WithOperation records the operation the error occurred on.
// It returns the receiver for chaining.
func (e *Error) WithOperation(op string) *Error {
	e.op = op
	return e
}

// WithPath records the path the error occurred on.
// It returns the receiver for chaining.
func (e *Error) WithPath(path string) *Error {
	e.path = path
	return e
}

// WithCause attaches the underlying backend error.
// The cause is reachable through errors.Unwrap.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// SetTemporary marks the error as retryable. The Retry layer only retries
// errors marked this way.
func (e *Error) SetTemporary() *Error {
	e.temporary = true
	return e
}

// Kind returns the error kind.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

// Operation returns the operation the error occurred on, or "".
func (e *Error) Operation() string {
	return e.op
}

// Path returns the path the error occurred on, or "".
func (e *Error) Path() string {
	return e.path
}

// Message returns the human-readable message without kind or context.
func (e *Error) Message() string {
	return e.message
}

// Temporary reports whether retrying the operation may succeed.
func (e *Error) Temporary() bool {
	return e.temporary
}

// Error returns the string form of the error.
// Format: "[Kind] op path: message: cause", omitting absent parts.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.kind.String())
	b.WriteString("]")
	if e.op != "" {
		b.WriteString(" ")
		b.WriteString(e.op)
	}
	if e.path != "" {
		b.WriteString(" ")
		b.WriteString(e.path)
	}
	if e.message != "" {
		b.WriteString(": ")
		b.WriteString(e.message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, or nil.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the error matches the standard library sentinel for
// its kind. This lets callers written against io/fs keep working:
//
//	if errors.Is(err, fs.ErrNotExist) { ... }
func (e *Error) Is(target error) bool {
	switch target {
	case fs.ErrNotExist:
		return e.kind == KindNotFound
	case fs.ErrExist:
		return e.kind == KindAlreadyExists
	case fs.ErrPermission:
		return e.kind == KindPermissionDenied
	case errors.ErrUnsupported:
		return e.kind == KindUnsupported
	}
	return false
}

// KindOf extracts the ErrorKind from an error chain.
// It returns KindUnknown for nil and KindInternal for errors that did not
// originate in this module.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// IsNotFound reports whether the error is a NotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnsupported reports whether the error is an Unsupported error.
func IsUnsupported(err error) bool {
	return KindOf(err) == KindUnsupported
}

// IsTemporary reports whether the error is marked retryable.
// Returns false for nil and for errors that did not originate in this
// module, which prevents blind retries of unclassified failures.
func IsTemporary(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.temporary
	}
	return false
}
