// Package errors provides the error responses of the nbassist relay.
// It includes a structured error type carrying the HTTP status and request
// ID, JSON response formatting, and zap logging helpers.
//
// Basic usage:
//
//	errors.WriteError(w, errors.NewValidationError(requestID, "Invalid request body", nil))
//
// The JSON body always carries a human-readable "message"; "details" is added
// only when the error has structured context for the caller.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a relay error. It drives logging and
// metrics labels; it is not exposed to callers.
type ErrorType string

const (
	// ValidationError represents malformed or incomplete inbound requests
	ValidationError ErrorType = "validation_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"

	// UpstreamError represents a structured error returned by the language model API
	UpstreamError ErrorType = "upstream_error"

	// TransportError represents a failure to reach the language model API
	TransportError ErrorType = "transport_error"

	// DecodeError represents an upstream body that does not match the expected schema
	DecodeError ErrorType = "decode_error"

	// UnavailableError represents a request rejected because the upstream is considered down
	UnavailableError ErrorType = "unavailable_error"
)

// RelayError is our custom error type that implements the error interface
// and provides additional context about the error. It is serialized to JSON
// for API responses while the wrapped error is kept for logging.
type RelayError struct {
	// Type categorizes the error (not exposed in JSON)
	Type ErrorType `json:"-"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request; it travels in the
	// X-Request-ID header instead of the body
	RequestID string `json:"-"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface. It returns a string that
// combines the error type, message, and underlying error (if any).
func (e *RelayError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap
// interface for error chains.
func (e *RelayError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, allowing type-based
// error matching while ignoring other fields.
func (e *RelayError) Is(target error) bool {
	t, ok := target.(*RelayError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError formats and writes a RelayError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes
// the error as a JSON response.
func WriteError(w http.ResponseWriter, err *RelayError) {
	code := err.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(err)
}
