package wiki

import (
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent identifies the client when no header overrides are given
const DefaultUserAgent = "mediawiki-session/1.0 (+https://github.com/olgasafonova/mediawiki-session)"

// Config holds the session's connection settings
type Config struct {
	// Endpoint is the wiki API URL (e.g., https://wiki.example.com/w/api.php)
	Endpoint string

	// Headers replaces the default header set when non-nil
	Headers http.Header

	// Timeout for API requests; zero uses the transport default
	Timeout time.Duration

	// MaxRetries for failed read-style requests; negative uses the transport default
	MaxRetries int
}

// Validate checks that the endpoint is an absolute http(s) URL
func (c *Config) Validate() error {
	return validateEndpoint(c.Endpoint)
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return &ValidationError{
			Field:   "endpoint",
			Message: "endpoint URL is required",
			Suggestion: `Point the session at the wiki's api.php.

Example:
  https://en.wikipedia.org/w/api.php`,
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{
			Field:      "endpoint",
			Value:      endpoint,
			Message:    "endpoint must be an absolute http or https URL",
			Suggestion: "Include the scheme and host, e.g. https://wiki.example.com/w/api.php",
		}
	}
	return nil
}

func defaultHeaders() http.Header {
	return http.Header{"User-Agent": {DefaultUserAgent}}
}

// headerSet returns a copy of h, or the default set when h is nil
func headerSet(h http.Header) http.Header {
	if h == nil {
		return defaultHeaders()
	}
	return h.Clone()
}
