package wiki

import (
	"context"
	"net/url"
	"strings"

	"github.com/olgasafonova/mediawiki-session/metrics"
	"github.com/olgasafonova/mediawiki-session/tracing"
	"go.opentelemetry.io/otel/trace"
)

// GetPage reads the latest revision text of title together with the info
// properties and token kinds selected by opts (nil opts selects the
// defaults). The first page entry in server order that exposes revision
// text wins; when none does, a *PageNotFoundError is returned.
//
// On success the page handle is replaced with the server's title and the
// text, and an edit token found on the entry is cached.
func (s *Session) GetPage(ctx context.Context, title string, opts *PageOptions) (string, error) {
	if opts == nil {
		opts = &PageOptions{}
	}
	info := opts.InfoProperties
	if info == nil {
		info = DefaultInfoProperties
	}
	tokens := opts.TokenKinds
	if tokens == nil {
		tokens = DefaultTokenKinds
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", title)
	params.Set("prop", "info|revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("rvlimit", "1")
	if len(info) > 0 {
		params.Set("inprop", strings.Join(info, "|"))
	}
	if len(tokens) > 0 {
		params.Set("intoken", strings.Join(tokens, "|"))
	}

	tracing.AddPageAttributes(trace.SpanFromContext(ctx), title)

	resp, err := s.Dispatch(ctx, params, false, nil)
	if err != nil {
		return "", err
	}

	env, err := decodePagesEnvelope(resp)
	if err != nil {
		return "", err
	}

	pages, err := orderedPages(env.Query.Pages)
	if err != nil {
		return "", &ProtocolError{URL: resp.URL, Body: string(resp.Body), Err: err}
	}

	for _, p := range pages {
		text, ok := revisionText(p)
		if !ok {
			continue
		}

		resolved := getString(p["title"])
		if resolved == "" {
			resolved = title
		}

		s.mu.Lock()
		s.page = pageHandle{title: resolved, text: text, loaded: true}
		if token := getString(p["edittoken"]); token != "" {
			s.editToken = token
		}
		s.mu.Unlock()

		metrics.ContentSize.WithLabelValues("read").Observe(float64(len(text)))
		s.logger.Debug("Page read", "title", resolved, "bytes", len(text))
		return text, nil
	}

	notFound := &PageNotFoundError{Title: title, URL: resp.URL}
	if env.Error != nil {
		notFound.Err = env.Error
	}
	return "", notFound
}
