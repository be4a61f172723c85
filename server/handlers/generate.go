// Package handlers provides the HTTP handlers of the nbassist relay.
// Handlers decode and validate requests, hand them to the processing
// pipeline and translate pipeline failures into error responses using the
// errors package. Every error is logged with the request ID.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/teilomillet/nbassist/errors"
	"github.com/teilomillet/nbassist/gemini"
	"github.com/teilomillet/nbassist/server/circuitbreaker"
	"github.com/teilomillet/nbassist/server/middleware"
	"github.com/teilomillet/nbassist/server/processing"
	"github.com/teilomillet/nbassist/server/validation"
	"go.uber.org/zap"
)

// RequestErrorPrefix starts the message of every failed generation response.
const RequestErrorPrefix = "Request error: "

// DefaultMaxBodyBytes bounds inbound bodies. Notebook tracebacks are long
// but not this long.
const DefaultMaxBodyBytes = 8 << 20

// GenerateHandler serves POST /generate.
type GenerateHandler struct {
	processor    *processing.Processor
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewGenerateHandler creates a handler with the given processor and logger.
func NewGenerateHandler(processor *processing.Processor, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		processor:    processor,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// ServeHTTP implements http.Handler.
//
// Error Handling:
//   - ValidationError (400): body is not a JSON object with errorOutput, code and language strings
//   - UpstreamError: the API rejected the call, its status is relayed
//   - UnavailableError (503): the circuit breaker is open
//   - TransportError, DecodeError (500): the API could not be reached or understood
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	req, err := validation.DecodeGenerateRequest(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			h.logger.Debug("Rejected request body",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			errors.WriteError(w, errors.NewValidationError(requestID, verr.Message, verr.Details()))
			return
		}
		relayErr := errors.NewInternalError(requestID, err)
		errors.LogError(h.logger, relayErr, requestID)
		errors.WriteError(w, relayErr)
		return
	}

	resp, err := h.processor.Process(r.Context(), req)
	if err != nil {
		relayErr := toRelayError(requestID, err)
		errors.LogError(h.logger, relayErr, requestID)
		errors.WriteError(w, relayErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}

// toRelayError maps a generation failure to its HTTP answer.
func toRelayError(requestID string, err error) *errors.RelayError {
	msg := RequestErrorPrefix + err.Error()

	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		return errors.NewUpstreamError(requestID, apiErr.HTTPStatus, msg, err)
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return errors.NewUnavailableError(requestID, msg, err)
	}

	errType := errors.InternalError
	var transportErr *gemini.TransportError
	var decodeErr *gemini.DecodeError
	switch {
	case errors.As(err, &transportErr):
		errType = errors.TransportError
	case errors.As(err, &decodeErr):
		errType = errors.DecodeError
	}
	return errors.NewError(errType, msg, http.StatusInternalServerError, requestID, nil, err)
}
