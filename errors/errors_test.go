package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrPlatform, "platform error"},
		{ErrProcessNotFound, "process not found"},
		{ErrPermissionDenied, "permission denied"},
		{ErrParse, "parse error"},
		{ErrInternal, "internal error"},
		{ErrorKind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &Error{
				Op:     "list_open_files",
				PID:    42,
				Kind:   ErrProcessNotFound,
				Detail: "process vanished",
				Err:    fmt.Errorf("no such file or directory"),
			},
			expected: "pid 42: list_open_files: process vanished: no such file or directory",
		},
		{
			name: "without pid",
			err: &Error{
				Op:     "parse size spec",
				Kind:   ErrParse,
				Detail: "unknown suffix",
			},
			expected: "parse size spec: unknown suffix",
		},
		{
			name: "kind only",
			err: &Error{
				Kind: ErrPermissionDenied,
			},
			expected: "permission denied",
		},
		{
			name: "with underlying error",
			err: &Error{
				Op:   "stat",
				Kind: ErrPlatform,
				Err:  fmt.Errorf("device busy"),
			},
			expected: "stat: platform error: device busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	err := &Error{
		Op:   "test",
		Kind: ErrInternal,
		Err:  underlying,
	}

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	var nilErr *Error
	if got := nilErr.Unwrap(); got != nil {
		t.Errorf("nil.Unwrap() = %v, want nil", got)
	}
}

func TestError_Is(t *testing.T) {
	err1 := &Error{Kind: ErrProcessNotFound, Op: "test1"}
	err2 := &Error{Kind: ErrProcessNotFound, Op: "test2"}
	err3 := &Error{Kind: ErrPermissionDenied, Op: "test3"}

	if !err1.Is(err2) {
		t.Error("err1.Is(err2) should be true (same kind)")
	}

	if err1.Is(err3) {
		t.Error("err1.Is(err3) should be false (different kind)")
	}

	if err1.Is(fmt.Errorf("some error")) {
		t.Error("err1.Is(fmt.Errorf(...)) should be false")
	}

	var nilErr *Error
	if !nilErr.Is(nil) {
		t.Error("nil.Is(nil) should be true")
	}
}

func TestNew(t *testing.T) {
	err := New(ErrParse, "validate", "pid spec is empty")

	if err.Kind != ErrParse {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrParse)
	}
	if err.Op != "validate" {
		t.Errorf("Op = %q, want %q", err.Op, "validate")
	}
	if err.Detail != "pid spec is empty" {
		t.Errorf("Detail = %q, want %q", err.Detail, "pid spec is empty")
	}
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := Wrap(underlying, ErrPermissionDenied, "open file")

	if err.Err != underlying {
		t.Error("Wrapped error should preserve underlying error")
	}
	if err.Kind != ErrPermissionDenied {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrPermissionDenied)
	}
	if err.Op != "open file" {
		t.Errorf("Op = %q, want %q", err.Op, "open file")
	}
}

func TestWrapWithPID(t *testing.T) {
	underlying := fmt.Errorf("not found")
	err := WrapWithPID(underlying, ErrProcessNotFound, "load", 7)

	if err.PID != 7 {
		t.Errorf("PID = %d, want %d", err.PID, 7)
	}
}

func TestWrapWithDetail(t *testing.T) {
	underlying := fmt.Errorf("syscall failed")
	err := WrapWithDetail(underlying, ErrPlatform, "readdir", "/proc unreadable")

	if err.Detail != "/proc unreadable" {
		t.Errorf("Detail = %q, want %q", err.Detail, "/proc unreadable")
	}
}

func TestIsKind(t *testing.T) {
	err := &Error{Kind: ErrProcessNotFound}
	wrapped := fmt.Errorf("wrapped: %w", err)

	if !IsKind(err, ErrProcessNotFound) {
		t.Error("IsKind(err, ErrProcessNotFound) should be true")
	}
	if !IsKind(wrapped, ErrProcessNotFound) {
		t.Error("IsKind(wrapped, ErrProcessNotFound) should be true")
	}
	if IsKind(err, ErrPermissionDenied) {
		t.Error("IsKind(err, ErrPermissionDenied) should be false")
	}
	if IsKind(fmt.Errorf("plain error"), ErrProcessNotFound) {
		t.Error("IsKind(plain error, ErrProcessNotFound) should be false")
	}
}

func TestGetKind(t *testing.T) {
	err := &Error{Kind: ErrPlatform}
	wrapped := fmt.Errorf("wrapped: %w", err)

	kind, ok := GetKind(err)
	if !ok || kind != ErrPlatform {
		t.Errorf("GetKind(err) = (%v, %v), want (%v, true)", kind, ok, ErrPlatform)
	}

	kind, ok = GetKind(wrapped)
	if !ok || kind != ErrPlatform {
		t.Errorf("GetKind(wrapped) = (%v, %v), want (%v, true)", kind, ok, ErrPlatform)
	}

	_, ok = GetKind(fmt.Errorf("plain error"))
	if ok {
		t.Error("GetKind(plain error) should return false")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind ErrorKind
	}{
		{"ErrKernelTableUnreadable", ErrKernelTableUnreadable, ErrPlatform},
		{"ErrNoSuchProcess", ErrNoSuchProcess, ErrProcessNotFound},
		{"ErrProcessPermission", ErrProcessPermission, ErrPermissionDenied},
		{"ErrBadSizeSpec", ErrBadSizeSpec, ErrParse},
		{"ErrBadPidSpec", ErrBadPidSpec, ErrParse},
		{"ErrBadFieldSpec", ErrBadFieldSpec, ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("%s.Kind = %v, want %v", tt.name, tt.err.Kind, tt.kind)
			}
			wrapped := Wrap(fmt.Errorf("underlying"), tt.kind, "test")
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %s) should be true", tt.name)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	underlying := fmt.Errorf("file not found")
	err1 := Wrap(underlying, ErrProcessNotFound, "list_open_files")
	err2 := fmt.Errorf("pipeline step failed: %w", err1)

	if !errors.Is(err2, ErrNoSuchProcess) {
		t.Error("errors.Is should find ErrNoSuchProcess in chain")
	}

	var e *Error
	if !errors.As(err2, &e) {
		t.Error("errors.As should find Error in chain")
	}
	if e.Op != "list_open_files" {
		t.Errorf("e.Op = %q, want %q", e.Op, "list_open_files")
	}

	if errors.Unwrap(err1) != underlying {
		t.Error("Unwrap should return underlying error")
	}
}
