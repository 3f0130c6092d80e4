// Package apperr defines the caller-visible error taxonomy from the
// service's error handling design: a small closed set of kinds that the
// dispatcher and transport map to JSON-RPC codes and HTTP statuses at
// the edge, instead of inspecting wrapped error chains throughout the
// codebase.
package apperr

import "fmt"

// Kind is one of the error kinds exposed to callers.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindAlreadyExists    Kind = "already_exists"
	KindInvalidArgument  Kind = "invalid_argument"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindDependencyFailure Kind = "dependency_failure"
	KindConflict         Kind = "conflict"
	KindInternal         Kind = "internal"
)

// Error is the machine-readable error returned to tool and REST callers.
type Error struct {
	Kind       Kind
	Message    string
	Dependency string // set only when Kind == KindDependencyFailure
	cause      error
}

func (e *Error) Error() string {
	if e.Dependency != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Dependency)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func new_(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

func NotFound(format string, args ...interface{}) *Error {
	return new_(KindNotFound, fmt.Sprintf(format, args...), nil)
}

func AlreadyExists(format string, args ...interface{}) *Error {
	return new_(KindAlreadyExists, fmt.Sprintf(format, args...), nil)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return new_(KindInvalidArgument, fmt.Sprintf(format, args...), nil)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return new_(KindUnauthorized, fmt.Sprintf(format, args...), nil)
}

func Forbidden(format string, args ...interface{}) *Error {
	return new_(KindForbidden, fmt.Sprintf(format, args...), nil)
}

func QuotaExceeded(format string, args ...interface{}) *Error {
	return new_(KindQuotaExceeded, fmt.Sprintf(format, args...), nil)
}

func Conflict(format string, args ...interface{}) *Error {
	return new_(KindConflict, fmt.Sprintf(format, args...), nil)
}

func Internal(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// DependencyFailure wraps a failure from an external collaborator
// (object store, graph store, vector store, LLM API).
func DependencyFailure(dependency string, cause error) *Error {
	return &Error{
		Kind:       KindDependencyFailure,
		Message:    cause.Error(),
		Dependency: dependency,
		cause:      cause,
	}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}

// KindOf returns the kind of err if it is an *Error, else KindInternal.
func KindOf(err error) Kind {
	if ae, ok := err.(*Error); ok {
		return ae.Kind
	}
	return KindInternal
}
