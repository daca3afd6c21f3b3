package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a chatctx error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"      // 404
	ErrContainerNotFound ErrorCode = "CONTAINER_NOT_FOUND" // 422
	ErrNoRecords         ErrorCode = "NO_RECORDS"          // 422
	ErrCancelled         ErrorCode = "CANCELLED"           // 499
	ErrWriteFailure      ErrorCode = "WRITE_FAILURE"       // 500
	ErrInternal          ErrorCode = "INTERNAL"            // 500
)

// ChatctxError represents a structured error with code, status, and details.
type ChatctxError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ChatctxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ChatctxError {
	return &ChatctxError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a run cannot be found in the ledger.
func NewNotFound(identifier string) *ChatctxError {
	return &ChatctxError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("run not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing source document.
func NewFileNotFound(path string) *ChatctxError {
	return &ChatctxError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewContainerNotFound creates a 422 error when the document has no record container.
// Nothing can be extracted from such a document.
func NewContainerNotFound(marker string) *ChatctxError {
	return &ChatctxError{
		Code:    ErrContainerNotFound,
		Status:  422,
		Message: fmt.Sprintf("container not found: %q", marker),
		Details: map[string]any{"marker": marker},
	}
}

// NewNoRecords creates a 422 error when the container holds zero record markers.
func NewNoRecords(marker string) *ChatctxError {
	return &ChatctxError{
		Code:    ErrNoRecords,
		Status:  422,
		Message: fmt.Sprintf("no records found for marker %q", marker),
		Details: map[string]any{"marker": marker},
	}
}

// NewWriteFailure creates a 500 error for a single extract that could not be persisted.
func NewWriteFailure(path string, err error) *ChatctxError {
	msg := fmt.Sprintf("failed to write %s", path)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &ChatctxError{
		Code:    ErrWriteFailure,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error when the caller cancelled an operation.
func NewCancelled(operation string) *ChatctxError {
	return &ChatctxError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ChatctxError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ChatctxError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error (or anything it wraps) is a ChatctxError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ChatctxError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}
