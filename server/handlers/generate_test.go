package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	relayerrors "github.com/teilomillet/nbassist/errors"
	"github.com/teilomillet/nbassist/gemini"
	"github.com/teilomillet/nbassist/server/circuitbreaker"
	"github.com/teilomillet/nbassist/server/middleware"
	"github.com/teilomillet/nbassist/server/mocks"
	"github.com/teilomillet/nbassist/server/processing"
	"go.uber.org/zap/zaptest"
)

const validBody = `{"errorOutput":"NameError: name 'x' is not defined","code":"print(x)","language":"English"}`

func newTestHandler(t *testing.T, llm processing.LanguageModel, notifier processing.Notifier, opts ...processing.Option) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	proc, err := processing.NewProcessor(llm, notifier, logger, opts...)
	require.NoError(t, err)
	return middleware.RequestID(NewGenerateHandler(proc, logger))
}

func doRequest(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestGenerateHandler tests the GenerateHandler's request handling.
// It verifies:
// 1. The upstream payload is relayed on success
// 2. Proper error responses for invalid requests
// 3. Upstream failures map to the right status and message
func TestGenerateHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		generate       func(context.Context, string) (*gemini.GenerateContentResponse, error)
		expectedStatus int
		expectedBody   string
		expectedError  *relayerrors.ErrorResponse
		expectedType   string
	}{
		{
			name: "success relays upstream payload",
			body: validBody,
			generate: func(ctx context.Context, p string) (*gemini.GenerateContentResponse, error) {
				return mocks.TextResponse("Define x first."), nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"candidates":[{"content":{"parts":[{"text":"Define x first."}],"role":"model"},"finishReason":"STOP"}]}`,
		},
		{
			name:           "malformed json",
			body:           `{"errorOutput":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  &relayerrors.ErrorResponse{Message: "Invalid request body"},
		},
		{
			name:           "missing field",
			body:           `{"errorOutput":"e","code":"c"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  &relayerrors.ErrorResponse{Message: "Request validation failed"},
		},
		{
			name:           "wrong field type",
			body:           `{"errorOutput":"e","code":["c"],"language":"English"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  &relayerrors.ErrorResponse{Message: "Invalid request body"},
		},
		{
			name: "transport failure",
			body: validBody,
			generate: func(ctx context.Context, p string) (*gemini.GenerateContentResponse, error) {
				return nil, &gemini.TransportError{Op: "generateContent", Err: errors.New("connection refused")}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  &relayerrors.ErrorResponse{Message: "Request error: generateContent: transport: connection refused"},
		},
		{
			name: "decode failure",
			body: validBody,
			generate: func(ctx context.Context, p string) (*gemini.GenerateContentResponse, error) {
				return nil, &gemini.DecodeError{Op: "generateContent", Err: errors.New("missing candidates")}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  &relayerrors.ErrorResponse{Message: "Request error: generateContent: decode response: missing candidates"},
		},
		{
			name: "upstream status is relayed",
			body: validBody,
			generate: func(ctx context.Context, p string) (*gemini.GenerateContentResponse, error) {
				return nil, &gemini.APIError{Op: "generateContent", HTTPStatus: http.StatusTooManyRequests, Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded"}
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedError:  &relayerrors.ErrorResponse{Message: "Request error: generateContent: 429 RESOURCE_EXHAUSTED: Quota exceeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := mocks.NewMockLanguageModel(tt.generate)
			h := newTestHandler(t, llm, mocks.NewMockNotifier())

			rec := doRequest(h, tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			}
			if tt.expectedError != nil {
				var resp relayerrors.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError.Message, resp.Message)
			}
			if tt.expectedStatus == http.StatusBadRequest {
				assert.Empty(t, llm.Calls(), "invalid requests must not reach the model")
			}
		})
	}
}

func TestGenerateHandler_CircuitOpen(t *testing.T) {
	llm := mocks.NewMockLanguageModel(func(ctx context.Context, p string) (*gemini.GenerateContentResponse, error) {
		return nil, &gemini.TransportError{Op: "generateContent", Err: errors.New("connection refused")}
	})
	cb, err := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:             "gemini",
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 1,
		TestMode:         true,
		IsFailure:        processing.IsUpstreamFailure,
	}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	h := newTestHandler(t, llm, nil, processing.WithCircuitBreaker(cb))

	assert.Equal(t, http.StatusInternalServerError, doRequest(h, validBody).Code)

	rec := doRequest(h, validBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message":"Request error: circuit breaker is open"}`, rec.Body.String())
}

func TestGenerateHandler_BodyTooLarge(t *testing.T) {
	llm := mocks.NewMockLanguageModel(nil)
	logger := zaptest.NewLogger(t)
	proc, err := processing.NewProcessor(llm, nil, logger)
	require.NoError(t, err)

	gh := NewGenerateHandler(proc, logger)
	gh.maxBodyBytes = 64

	body := `{"errorOutput":"` + strings.Repeat("x", 256) + `","code":"","language":""}`
	rec := doRequest(middleware.RequestID(gh), body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, llm.Calls())
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}
