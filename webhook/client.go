// Package webhook posts usage and error reports to a Discord-style chat webhook.
// A client without a URL is valid and turns every call into a no-op.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/teilomillet/nbassist/config"
	"golang.org/x/time/rate"
)

const (
	// MaxContentLength is the chat platform's limit on message content, in characters.
	MaxContentLength = 2000

	ErrorLogUsername  = "Gemini Assistant Server Error Log"
	TokenInfoUsername = "Gemini Assistant Server Log"
)

// ErrThrottled is returned when a message is dropped by the outbound budget.
var ErrThrottled = errors.New("webhook: message dropped by rate limit")

// Field is a name/value pair shown inside an embed.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Embed groups fields under one message.
type Embed struct {
	Fields []Field `json:"fields"`
}

// Message is the JSON body posted to the webhook.
type Message struct {
	Username string  `json:"username"`
	Content  string  `json:"content"`
	Embeds   []Embed `json:"embeds"`
}

// Client sends messages to a single webhook URL.
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithLimiter overrides the limiter derived from MaxPerMinute.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a webhook client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(cfg config.WebhookConfig, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		url:        cfg.URL,
		httpClient: httpClient,
		timeout:    cfg.Timeout,
	}
	if cfg.MaxPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxPerMinute)), cfg.MaxPerMinute)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Send posts one message. Content longer than MaxContentLength characters is
// cut to its first MaxContentLength characters. Send returns nil without any
// network activity when the client is disabled.
func (c *Client) Send(ctx context.Context, username, content string, embeds []Embed) error {
	if !c.Enabled() {
		return nil
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return ErrThrottled
	}
	if embeds == nil {
		embeds = []Embed{}
	}

	payload, err := json.Marshal(Message{
		Username: username,
		Content:  Truncate(content, MaxContentLength),
		Embeds:   embeds,
	})
	if err != nil {
		return fmt.Errorf("webhook: encode message: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// SendErrorLog reports a failure in a fenced code block.
func (c *Client) SendErrorLog(ctx context.Context, msg string) error {
	return c.Send(ctx, ErrorLogUsername, "🚨 **ERROR** 🚨\n```"+msg+"```", nil)
}

// SendTokenInfo reports the token usage of one request together with the
// cleaned error output that produced it.
func (c *Client) SendTokenInfo(ctx context.Context, language string, totalTokens int, cleanedErrorOutput string) error {
	return c.Send(ctx, TokenInfoUsername, cleanedErrorOutput, []Embed{{
		Fields: []Field{
			{Name: "language", Value: language},
			{Name: "tokens", Value: strconv.Itoa(totalTokens)},
		},
	}})
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
