// Package errors provides structured error types for graftwood.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP server and providers
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages for the provider message sink
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input or configuration validation failures
//   - *_UNAVAILABLE / NETWORK_*: Backend failures (recoverable, never fatal)
//   - RECURSION_DETECTED, MOUNT_RESOLUTION_FAILED: Mount/graft outcomes
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeRecursion, "document %s mounts itself", src)
//	if errors.Is(err, errors.ErrCodeRecursion) {
//	    // Report and abort this request only
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBackendUnavailable, origErr, "open %s", dsn)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidSource Code = "INVALID_SOURCE"
	ErrCodeInvalidConfig Code = "INVALID_CONFIGURATION"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeDuplicateID   Code = "DUPLICATE_ID"

	// Resource errors
	ErrCodeNotFound           Code = "NOT_FOUND"
	ErrCodeUnsupportedSource  Code = "UNSUPPORTED_SOURCE"
	ErrCodeBackendUnavailable Code = "BACKEND_UNAVAILABLE"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Mount/graft outcomes
	ErrCodeRecursion    Code = "RECURSION_DETECTED"
	ErrCodeMountFailed  Code = "MOUNT_RESOLUTION_FAILED"
	ErrCodeNotMountable Code = "NOT_MOUNTABLE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code,
// so an outer MOUNT_RESOLUTION_FAILED wrapping an inner RECURSION_DETECTED
// matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
