// Package base provides the HTTP transport the wiki session talks through.
package base

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olgasafonova/mediawiki-session/internal/infra"
	"github.com/olgasafonova/mediawiki-session/metrics"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries applies to read-style requests only
	DefaultMaxRetries = 3

	// MaxConcurrentRequests limits parallel API calls through one transport
	MaxConcurrentRequests = 5
)

// Request is one API call as the session describes it.
type Request struct {
	Method  string // http.MethodGet or http.MethodPost
	URL     string
	Params  url.Values
	Header  http.Header
	Cookies []*http.Cookie
}

// Response is what came back, fully read.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Cookies    []*http.Cookie
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client sends requests with a circuit breaker, bounded concurrency, and
// retries for GET requests. POST requests are sent exactly once: edits and
// login phases are not safe to replay.
type Client struct {
	HTTPClient     *http.Client
	Logger         *slog.Logger
	CircuitBreaker *infra.CircuitBreaker
	Semaphore      chan struct{}
	MaxRetries     int

	backoff func(attempt int) time.Duration
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.HTTPClient = newHTTPClient(d)
	}
}

// WithMaxRetries sets how many times a failed GET is retried
func WithMaxRetries(n int) ClientOption {
	return func(client *Client) {
		if n >= 0 {
			client.MaxRetries = n
		}
	}
}

// WithCircuitBreaker sets a custom circuit breaker
func WithCircuitBreaker(cb *infra.CircuitBreaker) ClientOption {
	return func(client *Client) {
		client.CircuitBreaker = cb
	}
}

// NewClient creates a new transport with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient:     newHTTPClient(DefaultTimeout),
		Logger:         slog.Default(),
		CircuitBreaker: infra.NewCircuitBreaker(),
		Semaphore:      make(chan struct{}, MaxConcurrentRequests),
		MaxRetries:     DefaultMaxRetries,
		backoff:        quadraticBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CircuitBreakerStats returns the current circuit breaker state
func (c *Client) CircuitBreakerStats() infra.CircuitBreakerStats {
	return c.CircuitBreaker.Stats()
}

// AcquireSlot blocks until a request slot is available or context is canceled
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	default:
	}

	metrics.RateLimitWaits.Inc()
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for rate limiter: %w", ctx.Err())
	}
}

// ReleaseSlot releases a request slot
func (c *Client) ReleaseSlot() {
	<-c.Semaphore
}

// CheckCircuitBreaker returns nil if requests are allowed, or an error if the circuit is open
func (c *Client) CheckCircuitBreaker(endpoint string) error {
	if !c.CircuitBreaker.Allow() {
		metrics.CircuitRejections.Inc()
		stats := c.CircuitBreaker.Stats()
		return &infra.ErrCircuitOpen{
			Endpoint: endpoint,
			RetryAt:  stats.RetryAt,
			Failures: stats.ConsecutiveFails,
		}
	}
	return nil
}

// Do performs the request. A non-nil error means no HTTP response was
// obtained; any response, whatever its status, is returned for the caller
// to judge.
//
// Every request the breaker admits settles it exactly once: success,
// failure, or Release when it ended before an attempt reached the endpoint.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	if err := c.CheckCircuitBreaker(r.URL); err != nil {
		return nil, err
	}

	settled := false
	defer func() {
		if !settled {
			c.CircuitBreaker.Release()
		}
	}()
	fail := func() {
		c.CircuitBreaker.RecordFailure()
		settled = true
	}

	if err := c.AcquireSlot(ctx); err != nil {
		return nil, err
	}
	defer c.ReleaseSlot()

	attempts := 1
	if r.Method == http.MethodGet {
		attempts += c.MaxRetries
	}

	var lastErr error
	var lastResp *Response
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.APIRetries.WithLabelValues(r.Method).Inc()
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				// the previous attempt failed
				fail()
				return nil, fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			}
		}

		req, err := buildRequest(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			lastResp = nil
			if ctx.Err() != nil {
				break
			}
			c.Logger.Warn("API request failed",
				"attempt", attempt+1,
				"method", r.Method,
				"error", err)
			continue
		}

		body, err := readAndClose(resp)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			lastResp = nil
			continue
		}

		lastErr = nil
		lastResp = &Response{
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			Cookies:    resp.Cookies(),
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if wait := retryAfter(resp.Header); wait > 0 && attempt+1 < attempts {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					fail()
					return nil, ctx.Err()
				}
			}
			continue
		}

		if resp.StatusCode >= 500 {
			c.Logger.Warn("API returned server error",
				"attempt", attempt+1,
				"status", resp.StatusCode,
				"body", truncate(string(body), 200))
			continue
		}

		c.CircuitBreaker.RecordSuccess()
		settled = true
		return lastResp, nil
	}

	fail()
	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

// buildRequest encodes params as a query string for GET and as a body for
// POST. A multipart Content-Type in the header selects multipart encoding.
func buildRequest(ctx context.Context, r Request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
		target      = r.URL
	)

	switch {
	case r.Method == http.MethodGet:
		if len(r.Params) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + r.Params.Encode()
		}
	case strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"):
		buf, ct, err := encodeMultipart(r.Params)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	default:
		body = strings.NewReader(r.Params.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range r.Cookies {
		req.AddCookie(ck)
	}
	return req, nil
}

func encodeMultipart(params url.Values) (*bytes.Buffer, string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, k := range keys {
		for _, v := range params[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("failed to encode field %s: %w", k, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

func quadraticBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 100 * time.Millisecond
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return body, err
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with optimized transport settings.
// It has no cookie jar: the session owns cookie state.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DisableCompression:    false,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
