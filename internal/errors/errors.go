package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Tabspace error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrHostLookup         ErrorCode = "HOST_LOOKUP"         // 404
	ErrFileNotFound       ErrorCode = "FILE_NOT_FOUND"      // 404
	ErrProtectedWorkspace ErrorCode = "PROTECTED_WORKSPACE" // 409
	ErrStorageRead        ErrorCode = "STORAGE_READ"        // 500
	ErrStorageWrite       ErrorCode = "STORAGE_WRITE"       // 500
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrHostUnavailable    ErrorCode = "HOST_UNAVAILABLE"    // 503
)

// TabspaceError represents a structured error with code, status, and details.
type TabspaceError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *TabspaceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TabspaceError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TabspaceError {
	return &TabspaceError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a workspace id that is not registered.
func NewNotFound(workspaceID string) *TabspaceError {
	return &TabspaceError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("workspace not found: %s", workspaceID),
		Details: map[string]any{"workspace_id": workspaceID},
	}
}

// NewHostLookup creates a 404 error for a tab, group or window the host no longer knows.
func NewHostLookup(kind string, id int, cause error) *TabspaceError {
	return &TabspaceError{
		Code:    ErrHostLookup,
		Status:  404,
		Message: fmt.Sprintf("%s %d not found in host", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
		cause:   cause,
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *TabspaceError {
	return &TabspaceError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewProtectedWorkspace creates a 409 error for mutations the general workspace refuses.
func NewProtectedWorkspace(msg string) *TabspaceError {
	return &TabspaceError{
		Code:    ErrProtectedWorkspace,
		Status:  409,
		Message: msg,
	}
}

// NewStorageRead creates a 500 error when durable storage cannot be read.
func NewStorageRead(key string, cause error) *TabspaceError {
	return &TabspaceError{
		Code:    ErrStorageRead,
		Status:  500,
		Message: fmt.Sprintf("read %s: %v", key, cause),
		Details: map[string]any{"key": key},
		cause:   cause,
	}
}

// NewStorageWrite creates a 500 error when durable storage cannot be written.
func NewStorageWrite(key string, cause error) *TabspaceError {
	return &TabspaceError{
		Code:    ErrStorageWrite,
		Status:  500,
		Message: fmt.Sprintf("write %s: %v", key, cause),
		Details: map[string]any{"key": key},
		cause:   cause,
	}
}

// NewHostUnavailable creates a 503 error when an operation needs a host and none is connected.
func NewHostUnavailable() *TabspaceError {
	return &TabspaceError{
		Code:    ErrHostUnavailable,
		Status:  503,
		Message: "no browser host connected (set debugger_url or pass --snapshot)",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TabspaceError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TabspaceError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a TabspaceError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TabspaceError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}
