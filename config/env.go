package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read at startup.
const (
	EnvAPIKey        = "API_KEY"
	EnvWebhookURL    = "WEB_HOOK_URL"
	EnvGeminiModel   = "GEMINI_MODEL"
	EnvGeminiBaseURL = "GEMINI_BASE_URL"
	EnvPort          = "PORT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
)

// LookupFunc matches os.LookupEnv so tests can supply their own environment.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with any environment variables that are set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if v, ok := lookup(EnvAPIKey); ok {
		cfg.Gemini.APIKey = v
	}
	if v, ok := lookup(EnvWebhookURL); ok {
		cfg.Webhook.URL = v
	}
	if v, ok := lookup(EnvGeminiModel); ok && v != "" {
		cfg.Gemini.Model = v
	}
	if v, ok := lookup(EnvGeminiBaseURL); ok && v != "" {
		cfg.Gemini.BaseURL = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// LoadEnvironment builds the process configuration. It loads envFile into the
// environment when the file exists, overlays configFile when one is given,
// applies environment overrides and validates the result.
func LoadEnvironment(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		// A missing .env is normal outside local development.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = LoadFile(configFile)
		if err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
