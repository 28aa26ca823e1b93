package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestTabspaceError_Error(t *testing.T) {
	err := &TabspaceError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "workspace not found",
	}

	expected := "NOT_FOUND: workspace not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("name is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "name is required" {
		t.Errorf("Message = %q, want %q", err.Message, "name is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("work")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["workspace_id"] != "work" {
		t.Errorf("Details[workspace_id] = %v, want %q", err.Details["workspace_id"], "work")
	}
}

func TestNewHostLookup(t *testing.T) {
	cause := stderrors.New("no such tab")
	err := NewHostLookup("tab", 42, cause)

	if err.Code != ErrHostLookup {
		t.Errorf("Code = %q, want %q", err.Code, ErrHostLookup)
	}
	if err.Details["id"] != 42 {
		t.Errorf("Details[id] = %v, want 42", err.Details["id"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("HostLookup error should unwrap to its cause")
	}
}

func TestNewStorageErrors(t *testing.T) {
	cause := stderrors.New("disk full")

	read := NewStorageRead("workspaces", cause)
	if read.Code != ErrStorageRead || read.Status != 500 {
		t.Errorf("read = %v/%d, want %v/500", read.Code, read.Status, ErrStorageRead)
	}

	write := NewStorageWrite("workspaceAssignments", cause)
	if write.Code != ErrStorageWrite {
		t.Errorf("write.Code = %q, want %q", write.Code, ErrStorageWrite)
	}
	if write.Details["key"] != "workspaceAssignments" {
		t.Errorf("Details[key] = %v", write.Details["key"])
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInvalidRequest, false},
		{"wrapped", fmt.Errorf("ctx: %w", NewHostUnavailable()), ErrHostUnavailable, true},
		{"plain error", stderrors.New("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/backup.jsonl")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["path"] != "/tmp/backup.jsonl" {
		t.Errorf("Details[path] = %v, want /tmp/backup.jsonl", err.Details["path"])
	}
}
