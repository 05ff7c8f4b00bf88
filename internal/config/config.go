// Package config loads server settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/olgasafonova/mediawiki-session/wiki"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries for read-style requests
	DefaultMaxRetries = 3
)

// Config holds everything the server needs to start
type Config struct {
	Wiki wiki.Config

	// Username for login (optional, needed for editing)
	Username string

	// Password for login (optional, needed for editing)
	Password string

	// MetricsAddr enables the Prometheus endpoint when set (e.g., ":9090")
	MetricsAddr string
}

// Load reads .env (if present) and then the environment.
// Variables already set in the environment win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from environment variables only
func FromEnv() (*Config, error) {
	endpoint := os.Getenv("MEDIAWIKI_URL")
	if endpoint == "" {
		return nil, errors.New("MEDIAWIKI_URL environment variable is required")
	}

	timeout := DefaultTimeout
	if t := os.Getenv("MEDIAWIKI_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil && d > 0 {
			timeout = d
		}
	}

	maxRetries := DefaultMaxRetries
	if r := os.Getenv("MEDIAWIKI_MAX_RETRIES"); r != "" {
		if n, err := strconv.Atoi(r); err == nil && n >= 0 {
			maxRetries = n
		}
	}

	var headers http.Header
	if ua := os.Getenv("MEDIAWIKI_USER_AGENT"); ua != "" {
		headers = http.Header{"User-Agent": {ua}}
	}

	cfg := &Config{
		Wiki: wiki.Config{
			Endpoint:   endpoint,
			Headers:    headers,
			Timeout:    timeout,
			MaxRetries: maxRetries,
		},
		Username:    os.Getenv("MEDIAWIKI_USERNAME"),
		Password:    os.Getenv("MEDIAWIKI_PASSWORD"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if err := cfg.Wiki.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HasCredentials returns true if login credentials are configured
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
