// Package errors defines the structured error taxonomy shared by every
// Yocore component and service surface.
package errors

import "fmt"

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"         // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"                // 404
	ErrConflict         ErrorCode = "CONFLICT"                 // 409
	ErrNotSupportedMode ErrorCode = "NOT_SUPPORTED_IN_MODE"    // 501
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"             // 401
	ErrConfig           ErrorCode = "CONFIG_ERROR"             // fatal at startup, exit 2
	ErrPortInUse        ErrorCode = "PORT_IN_USE"              // fatal at startup, exit 3
	ErrProvider         ErrorCode = "AI_PROVIDER_ERROR"        // AI subprocess failure
	ErrInternal         ErrorCode = "INTERNAL"                 // 500
)

// YocoreError is a structured error with a code, an HTTP-ish status, a
// human message, and optional detail fields.
type YocoreError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *YocoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether err is a *YocoreError with the given code.
func Is(err error, code ErrorCode) bool {
	ye, ok := err.(*YocoreError)
	return ok && ye.Code == code
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *YocoreError {
	return &YocoreError{Code: ErrInvalidRequest, Status: 400, Message: msg}
}

// NewNotFound creates a 404 error for a missing entity.
func NewNotFound(identifier string) *YocoreError {
	return &YocoreError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts (e.g. duplicate sequence).
func NewConflict(msg string) *YocoreError {
	return &YocoreError{Code: ErrConflict, Status: 409, Message: msg}
}

// NewNotSupportedInMode signals that the active storage backend does not
// implement the requested capability (e.g. FTS/vector search under the
// ephemeral backend), surfaced explicitly rather than as a silent empty
// result.
func NewNotSupportedInMode(operation, mode string) *YocoreError {
	return &YocoreError{
		Code:    ErrNotSupportedMode,
		Status:  501,
		Message: fmt.Sprintf("%s is not supported by the %s storage backend", operation, mode),
		Details: map[string]any{"operation": operation, "mode": mode},
	}
}

// NewUnauthorized creates a 401 error. Never include the submitted token in Details.
func NewUnauthorized() *YocoreError {
	return &YocoreError{Code: ErrUnauthorized, Status: 401, Message: "missing or invalid bearer token"}
}

// NewConfigError creates a fatal startup configuration error (CLI exit code 2).
func NewConfigError(msg string) *YocoreError {
	return &YocoreError{Code: ErrConfig, Status: 2, Message: msg}
}

// NewPortInUse creates a fatal startup error (CLI exit code 3).
func NewPortInUse(addr string) *YocoreError {
	return &YocoreError{
		Code:    ErrPortInUse,
		Status:  3,
		Message: fmt.Sprintf("address already in use: %s", addr),
		Details: map[string]any{"addr": addr},
	}
}

// NewProviderError creates an error for AI subprocess failures (non-zero exit
// or timeout). Schema mismatches are reported as aiqueue.SchemaError instead
// and never retry; see internal/aiqueue.
func NewProviderError(msg string) *YocoreError {
	return &YocoreError{Code: ErrProvider, Status: 502, Message: msg}
}

// NewInternal wraps an unexpected internal error.
func NewInternal(err error) *YocoreError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &YocoreError{Code: ErrInternal, Status: 500, Message: msg}
}
