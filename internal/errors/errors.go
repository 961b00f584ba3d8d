// Package errors defines stable error codes for audit failure modes.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ProjectUnreadable indicates the project root cannot be read or walked
	ProjectUnreadable ErrorCode = "PROJECT_UNREADABLE"
	// LockHeld indicates another audit holds the per-project lock
	LockHeld ErrorCode = "LOCK_HELD"
	// CacheCorrupt indicates a cache artifact could not be decoded
	CacheCorrupt ErrorCode = "CACHE_CORRUPT"
	// ToolFailed indicates a single analysis tool failed
	ToolFailed ErrorCode = "TOOL_FAILED"
	// ToolUnknown indicates a tool name with no registered analyzer
	ToolUnknown ErrorCode = "TOOL_UNKNOWN"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AuditError represents an audit error with a stable code and message
type AuditError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error     // Underlying error (not exported to JSON)
}

// New creates a new AuditError
func New(code ErrorCode, message string, cause error) *AuditError {
	return &AuditError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AuditError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AuditError) Unwrap() error {
	return e.cause
}

// CodeOf returns the error code of err, or InternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	var ae *AuditError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// IsCatastrophic reports whether err should fail the whole audit rather
// than a single tool.
func IsCatastrophic(err error) bool {
	switch CodeOf(err) {
	case ProjectUnreadable, LockHeld:
		return true
	}
	return false
}
