// Package errors provides typed error handling for the loof introspector.
//
// It defines the four error kinds named by the core's error-handling
// design — Platform, ProcessNotFound, PermissionDenied, Parse — plus an
// Internal kind for genuinely unexpected wrapped errors. All errors support
// the standard errors.Is() and errors.As() functions for inspection.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrPlatform indicates an entire kernel table was unreadable.
	// Fatal for the top-level call.
	ErrPlatform ErrorKind = iota
	// ErrProcessNotFound indicates a requested pid is absent. Fatal only
	// for single-pid operations.
	ErrProcessNotFound
	// ErrPermissionDenied is reserved for explicit single-target
	// failures; bulk enumeration downgrades this to a skip.
	ErrPermissionDenied
	// ErrParse indicates a CLI selection spec failed to parse. Fatal at
	// startup.
	ErrParse
	// ErrInternal indicates an error outside the four named kinds.
	ErrInternal
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrPlatform:
		return "platform error"
	case ErrProcessNotFound:
		return "process not found"
	case ErrPermissionDenied:
		return "permission denied"
	case ErrParse:
		return "parse error"
	case ErrInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Error is a classified error produced anywhere in the core.
type Error struct {
	// Op is the operation that failed (e.g. "list_processes", "filter").
	Op string
	// PID is the affected process, if applicable.
	PID uint32
	// Err is the underlying error.
	Err error
	// Kind is the error classification.
	Kind ErrorKind
	// Detail provides additional context about the error.
	Detail string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.PID != 0 {
		msg = fmt.Sprintf("pid %d: ", e.PID)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target. It matches if the
// target is an *Error with the same Kind and returns false otherwise;
// errors.Is then goes on to the wrapped error through Unwrap.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new Error with the given kind.
func New(kind ErrorKind, op string, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   kind,
		Detail: detail,
	}
}

// Wrap wraps an error with an operation and kind.
func Wrap(err error, kind ErrorKind, op string) *Error {
	return &Error{
		Op:   op,
		Err:  err,
		Kind: kind,
	}
}

// WrapWithPID wraps an error with an operation, kind, and pid.
func WrapWithPID(err error, kind ErrorKind, op string, pid uint32) *Error {
	return &Error{
		Op:   op,
		PID:  pid,
		Err:  err,
		Kind: kind,
	}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind ErrorKind, op string, detail string) *Error {
	return &Error{
		Op:     op,
		Err:    err,
		Kind:   kind,
		Detail: detail,
	}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error carries one.
func GetKind(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
