// Package config provides configuration management for the nbassist relay.
// Configuration is assembled once at startup from defaults, an optional YAML
// file and environment variables, validated, and then treated as immutable.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete relay configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Gemini         GeminiConfig         `yaml:"gemini"`
	Webhook        WebhookConfig        `yaml:"webhook"`
	Logging        LoggingConfig        `yaml:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
type ServerConfig struct {
	// Host is the interface to bind (default: all interfaces)
	Host string `yaml:"host"`

	// Port specifies the HTTP server port (default: 3000)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds the whole handler, upstream calls included,
	// so it must outlast a slow generation (default: 120s)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for in-flight requests
	// during graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GeminiConfig holds the upstream generative-language API settings.
type GeminiConfig struct {
	// APIKey is sent as the `key` query parameter. Required.
	APIKey string `yaml:"api_key"`

	// BaseURL is the versioned API root, without a trailing slash
	BaseURL string `yaml:"base_url"`

	// Model is the model identifier used for both countTokens and generateContent
	Model string `yaml:"model"`

	// Timeout bounds each upstream call. Zero leaves the HTTP client default.
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookConfig holds the chat webhook settings used for usage and error reports.
type WebhookConfig struct {
	// URL of the webhook. Empty disables every notification.
	URL string `yaml:"url"`

	// MaxPerMinute drops notifications beyond this budget. Zero means unlimited.
	MaxPerMinute int `yaml:"max_per_minute"`

	// Timeout bounds each webhook call. Zero leaves the HTTP client default.
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CircuitBreakerConfig guards content generation against a failing upstream.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxRequests is maximum number of requests allowed to pass through when in half-open state
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state for the circuit breaker
	Interval time.Duration `yaml:"interval"`

	// Timeout is the period of the open state until it becomes half-open
	Timeout time.Duration `yaml:"timeout"`

	// FailureThreshold is the number of consecutive failures needed to trip the circuit
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
// The API key is intentionally empty: it must come from the environment or a file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 15 * time.Second,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-1.5-flash",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          false,
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves ${VAR} and ${VAR:-default} references. A default
// applies when the variable is unset or empty.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			if val := os.Getenv(key[:i]); val != "" {
				return val
			}
			return key[i+2:]
		}
		return os.Getenv(key)
	})
}

// Load decodes YAML from r on top of DefaultConfig. It does not validate:
// environment overrides are applied afterwards by LoadEnvironment.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := DefaultConfig()

	dec := yaml.NewDecoder(strings.NewReader(expandEnvVars(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	// Gemini validation
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("missing API key: set API_KEY or gemini.api_key")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("empty Gemini model")
	}
	if err := validateURL(c.Gemini.BaseURL); err != nil {
		return fmt.Errorf("invalid Gemini base URL: %w", err)
	}
	if c.Gemini.Timeout < 0 {
		return fmt.Errorf("negative Gemini timeout: %v", c.Gemini.Timeout)
	}

	// Webhook validation
	if c.Webhook.URL != "" {
		if err := validateURL(c.Webhook.URL); err != nil {
			return fmt.Errorf("invalid webhook URL: %w", err)
		}
	}
	if c.Webhook.MaxPerMinute < 0 {
		return fmt.Errorf("negative webhook max per minute: %d", c.Webhook.MaxPerMinute)
	}
	if c.Webhook.Timeout < 0 {
		return fmt.Errorf("negative webhook timeout: %v", c.Webhook.Timeout)
	}

	// Logging validation
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Metrics.Path)
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold == 0 {
			return fmt.Errorf("circuit breaker failure threshold must be positive")
		}
		if c.CircuitBreaker.Timeout <= 0 {
			return fmt.Errorf("circuit breaker timeout must be positive: %v", c.CircuitBreaker.Timeout)
		}
		if c.CircuitBreaker.Interval < 0 {
			return fmt.Errorf("negative circuit breaker interval: %v", c.CircuitBreaker.Interval)
		}
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
