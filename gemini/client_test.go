package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/nbassist/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1beta/",
		Model:   "gemini-test",
	}, srv.Client())
}

func TestCountTokens(t *testing.T) {
	var gotPath, gotKey, gotPrompt, gotContentType string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotContentType = r.Header.Get("Content-Type")

		var body contentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		require.Len(t, body.Contents[0].Parts, 1)
		gotPrompt = body.Contents[0].Parts[0].Text

		w.Write([]byte(`{"totalTokens": 42}`))
	})

	n, err := client.CountTokens(context.Background(), "hello prompt")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, "/v1beta/models/gemini-test:countTokens", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "hello prompt", gotPrompt)
}

func TestCountTokens_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "missing totalTokens",
			status: http.StatusOK,
			body:   `{}`,
			checkFn: func(t *testing.T, err error) {
				var decodeErr *DecodeError
				assert.ErrorAs(t, err, &decodeErr)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"totalTokens":`,
			checkFn: func(t *testing.T, err error) {
				var decodeErr *DecodeError
				assert.ErrorAs(t, err, &decodeErr)
			},
		},
		{
			name:   "upstream rejection",
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"status":"PERMISSION_DENIED","message":"API key not valid"}}`,
			checkFn: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusForbidden, apiErr.HTTPStatus)
				assert.Equal(t, "PERMISSION_DENIED", apiErr.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.CountTokens(context.Background(), "prompt")
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestGenerateContent(t *testing.T) {
	const payload = `{"candidates":[{"content":{"parts":[{"text":"Fix the import."}],"role":"model"},"finishReason":"STOP"}]}`

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, payload)
	})

	resp, err := client.GenerateContent(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", gotPath)

	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "model", resp.Candidates[0].Content.Role)
	assert.Equal(t, "STOP", resp.Candidates[0].FinishReason)
	assert.Equal(t, "Fix the import.", resp.Text())

	// The relayed payload keeps the upstream shape.
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(out))
}

func TestGenerateContent_APIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    int
		wantStatus  string
		wantMessage string
	}{
		{
			name:        "error envelope",
			status:      http.StatusTooManyRequests,
			body:        `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded"}}`,
			wantCode:    429,
			wantStatus:  "RESOURCE_EXHAUSTED",
			wantMessage: "Quota exceeded",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream proxy failure\n",
			wantCode:    http.StatusBadGateway,
			wantMessage: "upstream proxy failure",
		},
		{
			name:        "empty body",
			status:      http.StatusServiceUnavailable,
			wantCode:    http.StatusServiceUnavailable,
			wantMessage: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.GenerateContent(context.Background(), "prompt")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestGenerateContent_DecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"unexpected": true}`)
	})

	_, err := client.GenerateContent(context.Background(), "prompt")

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(config.GeminiConfig{
		APIKey:  "secret-key",
		BaseURL: baseURL,
		Model:   "gemini-test",
	}, nil)

	_, err := client.GenerateContent(context.Background(), "prompt")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	client.timeout = 20 * time.Millisecond

	_, err := client.CountTokens(context.Background(), "prompt")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestEndpointEscaping(t *testing.T) {
	client := NewClient(config.GeminiConfig{
		APIKey:  "a&b",
		BaseURL: "https://example.test/v1beta/",
		Model:   "gemini-1.5-flash",
	}, nil)

	got := client.endpoint(opGenerateContent)
	assert.Equal(t, "https://example.test/v1beta/models/gemini-1.5-flash:generateContent?key=a%26b", got)
	assert.True(t, strings.HasPrefix(got, "https://"))
	assert.Equal(t, "gemini-1.5-flash", client.Model())
}
