package errors

import (
	"net/http"
)

// NewError creates a new RelayError with the given parameters.
// It is a general-purpose constructor that allows full control over
// the error's fields. For most cases, you should use one of the
// specialized constructors below.
//
// Example:
//
//	err := NewError(TransportError, "Request error: dial tcp: i/o timeout", 500, "req_123", nil, netErr)
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *RelayError {
	return &RelayError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewValidationError creates a validation error with appropriate defaults.
// Use this for inbound requests that cannot enter the pipeline, such as:
//   - Bodies that are not valid JSON
//   - Missing errorOutput, code or language fields
//   - Fields of the wrong JSON type
//
// Example:
//
//	err := NewValidationError("req_123", "Invalid request body", map[string]interface{}{
//	    "field": "language",
//	    "error": "required",
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *RelayError {
	return &RelayError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewUpstreamError creates an error that mirrors the status code returned by
// the language model API. Status codes outside the error range fall back to 502.
//
// Example:
//
//	err := NewUpstreamError("req_123", 429, "Request error: ...", apiErr)
func NewUpstreamError(requestID string, status int, message string, err error) *RelayError {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &RelayError{
		Type:      UpstreamError,
		Message:   message,
		Code:      status,
		RequestID: requestID,
		err:       err,
	}
}

// NewUnavailableError creates a 503 error for requests that were not sent
// upstream because the circuit breaker is open.
func NewUnavailableError(requestID string, message string, err error) *RelayError {
	return &RelayError{
		Type:      UnavailableError,
		Message:   message,
		Code:      http.StatusServiceUnavailable,
		RequestID: requestID,
		err:       err,
	}
}

// NewInternalError creates an internal server error with appropriate defaults.
// Use this for unexpected errors that are not covered by other error types:
//   - Panics
//   - Response encoding failures
//   - Unexpected system failures
//
// Example:
//
//	err := NewInternalError("req_123", encodeErr)
func NewInternalError(requestID string, err error) *RelayError {
	return &RelayError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
