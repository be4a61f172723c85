// Package gemini is a minimal client for the generative-language REST API.
// It covers the two calls the relay needs, countTokens and generateContent,
// and classifies every failure as a TransportError, DecodeError or APIError.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teilomillet/nbassist/config"
)

const (
	opCountTokens     = "countTokens"
	opGenerateContent = "generateContent"

	// maxResponseBytes caps how much of an upstream body is buffered.
	maxResponseBytes = 16 << 20

	// maxRawMessage caps the raw body quoted in an APIError when the
	// upstream did not answer with an error envelope.
	maxRawMessage = 512
)

// Client calls a single model of the generative-language API.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
}

// NewClient creates a client for cfg.Model. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(cfg config.GeminiConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
	}
}

// Model returns the model identifier used for every call.
func (c *Client) Model() string {
	return c.model
}

// CountTokens returns the number of tokens the model sees in prompt.
func (c *Client) CountTokens(ctx context.Context, prompt string) (int, error) {
	body, err := c.post(ctx, opCountTokens, prompt)
	if err != nil {
		return 0, err
	}

	var resp countTokensResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &DecodeError{Op: opCountTokens, Err: err}
	}
	if resp.TotalTokens == nil {
		return 0, &DecodeError{Op: opCountTokens, Err: errors.New("missing totalTokens")}
	}
	return *resp.TotalTokens, nil
}

// GenerateContent asks the model to answer prompt.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (*GenerateContentResponse, error) {
	body, err := c.post(ctx, opGenerateContent, prompt)
	if err != nil {
		return nil, err
	}

	var resp GenerateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DecodeError{Op: opGenerateContent, Err: err}
	}
	if resp.Candidates == nil {
		return nil, &DecodeError{Op: opGenerateContent, Err: errors.New("missing candidates")}
	}
	return &resp, nil
}

func (c *Client) endpoint(op string) string {
	return fmt.Sprintf("%s/models/%s:%s?key=%s",
		c.baseURL, url.PathEscape(c.model), op, url.QueryEscape(c.apiKey))
}

// post sends prompt to op and returns the body of a 2xx answer.
func (c *Client) post(ctx context.Context, op, prompt string) ([]byte, error) {
	payload, err := json.Marshal(newContentRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(op), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: redact(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(op, resp.StatusCode, body)
	}
	return body, nil
}

// parseAPIError reads the error envelope, falling back to the raw body.
func parseAPIError(op string, status int, body []byte) *APIError {
	apiErr := &APIError{Op: op, HTTPStatus: status}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Status = env.Error.Status
		apiErr.Message = env.Error.Message
		return apiErr
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > maxRawMessage {
		raw = raw[:maxRawMessage]
	}
	if raw == "" {
		raw = http.StatusText(status)
	}
	apiErr.Code = status
	apiErr.Message = raw
	return apiErr
}

// redact drops the request URL from net/http errors; it carries the API key.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
