// Package wiki implements a stateful MediaWiki API session: cookie-based
// login, edit tokens, page read and edit, and recent-changes pagination.
//
// A Session mutates its state (cookies, token, page handle, cursor) on
// nearly every call. Its internal lock only keeps that state memory-safe;
// operations are not meant to interleave. Callers that share a session
// must serialize whole operations themselves, or use one session per worker.
package wiki

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/olgasafonova/mediawiki-session/internal/base"
)

// Transport performs HTTP requests on behalf of the session.
// *base.Client implements it.
type Transport interface {
	Do(ctx context.Context, r base.Request) (*base.Response, error)
}

// Session holds one user's connection to one wiki API endpoint.
type Session struct {
	id        string
	transport Transport
	logger    *slog.Logger

	mu        sync.Mutex
	endpoint  string
	header    http.Header
	cookies   []*http.Cookie
	username  string
	editToken string
	page      pageHandle
	cursor    Cursor
}

// pageHandle is the last successfully read page
type pageHandle struct {
	title  string
	text   string
	loaded bool
}

// Option configures a Session
type Option func(*options)

type options struct {
	transport Transport
	logger    *slog.Logger
}

// WithTransport replaces the default HTTP transport
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLogger sets the session logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a session for config.Endpoint. No network call is made.
func New(config *Config, opts ...Option) (*Session, error) {
	if config == nil {
		return nil, &ValidationError{Field: "config", Message: "config is required"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.transport == nil {
		clientOpts := []base.ClientOption{base.WithLogger(o.logger)}
		if config.Timeout > 0 {
			clientOpts = append(clientOpts, base.WithTimeout(config.Timeout))
		}
		if config.MaxRetries >= 0 {
			clientOpts = append(clientOpts, base.WithMaxRetries(config.MaxRetries))
		}
		o.transport = base.NewClient(clientOpts...)
	}

	id := uuid.NewString()
	return &Session{
		id:        id,
		transport: o.transport,
		logger:    o.logger.With("session_id", id),
		endpoint:  config.Endpoint,
		header:    headerSet(config.Headers),
	}, nil
}

// Configure retargets the session and replaces its header set. A nil
// header set restores the default. No network call is made and no other
// state is touched.
func (s *Session) Configure(endpoint string, headers http.Header) error {
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoint = endpoint
	s.header = headerSet(headers)
	return nil
}

// ID returns the session's random identifier, used in logs and spans
func (s *Session) ID() string {
	return s.id
}

// Endpoint returns the API URL the session talks to
func (s *Session) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// Header returns a copy of the session's header set
func (s *Session) Header() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.Clone()
}

// Cookies returns a copy of the stored session cookies
func (s *Session) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCookies(s.cookies)
}

// Username returns the name used by the last successful login
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// EditToken returns the cached edit token, if any
func (s *Session) EditToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editToken
}

// CurrentPage returns the page handle left by the last successful GetPage
func (s *Session) CurrentPage() (title, text string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.title, s.page.text, s.page.loaded
}

// RecentChangesCursor returns the recent-changes pagination state
func (s *Session) RecentChangesCursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Session) setCookies(cookies []*http.Cookie) {
	s.mu.Lock()
	s.cookies = cloneCookies(cookies)
	s.mu.Unlock()
}

// mergeCookies adds cookies, replacing stored ones of the same name
func (s *Session) mergeCookies(cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ck := range cookies {
		replaced := false
		for i, existing := range s.cookies {
			if existing.Name == ck.Name {
				c := *ck
				s.cookies[i] = &c
				replaced = true
				break
			}
		}
		if !replaced {
			c := *ck
			s.cookies = append(s.cookies, &c)
		}
	}
}

func (s *Session) setEditToken(token string) {
	s.mu.Lock()
	s.editToken = token
	s.mu.Unlock()
}

func cloneCookies(cookies []*http.Cookie) []*http.Cookie {
	if cookies == nil {
		return nil
	}
	out := make([]*http.Cookie, len(cookies))
	for i, ck := range cookies {
		c := *ck
		out[i] = &c
	}
	return out
}
