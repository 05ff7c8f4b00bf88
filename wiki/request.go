package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/olgasafonova/mediawiki-session/internal/base"
	"github.com/olgasafonova/mediawiki-session/metrics"
	"github.com/olgasafonova/mediawiki-session/tracing"
)

// Dispatch sends params to the endpoint and returns the raw response.
// format=json is added when absent. write selects a POST with a body,
// otherwise a GET with query parameters; both carry the stored cookies and
// the session headers, with extra layered on top. A network failure or a
// non-2xx status yields a *TransportError; the payload is not interpreted.
func (s *Session) Dispatch(ctx context.Context, params url.Values, write bool, extra http.Header) (*base.Response, error) {
	p := cloneValues(params)
	if _, ok := p["format"]; !ok {
		p.Set("format", "json")
	}

	method := http.MethodGet
	if write {
		method = http.MethodPost
	}
	action := p.Get("action")

	s.mu.Lock()
	endpoint := s.endpoint
	header := s.header.Clone()
	cookies := cloneCookies(s.cookies)
	s.mu.Unlock()

	if header == nil {
		header = http.Header{}
	}
	for k, vs := range extra {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	ctx, span := tracing.StartSpan(ctx, "wiki.api."+action)
	defer span.End()
	tracing.AddAPIAttributes(span, action, method, s.id)

	start := time.Now()
	resp, err := s.transport.Do(ctx, base.Request{
		Method:  method,
		URL:     endpoint,
		Params:  p,
		Header:  header,
		Cookies: cookies,
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		terr := &TransportError{URL: endpoint, Err: err}
		metrics.RecordAPICall(action, method, duration, false, string(terr.ErrorCode()))
		tracing.RecordError(span, terr)
		s.logger.Warn("API request failed", "action", action, "method", method, "error", err)
		return nil, terr
	}

	if !resp.OK() {
		terr := &TransportError{URL: resp.URL, StatusCode: resp.StatusCode, Body: string(resp.Body)}
		metrics.RecordAPICall(action, method, duration, false, string(terr.ErrorCode()))
		tracing.RecordError(span, terr)
		s.logger.Warn("API returned non-success status",
			"action", action,
			"method", method,
			"status", resp.StatusCode)
		return nil, terr
	}

	metrics.RecordAPICall(action, method, duration, true, "")
	s.logger.Debug("API request completed",
		"action", action,
		"method", method,
		"status", resp.StatusCode,
		"duration", duration)
	return resp, nil
}

// Request is Dispatch followed by JSON parsing. An unparsable or
// non-object payload yields a *ProtocolError with the URL and raw body.
func (s *Session) Request(ctx context.Context, params url.Values, write bool, extra http.Header) (Response, error) {
	resp, err := s.Dispatch(ctx, params, write, extra)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

func decodeResponse(resp *base.Response) (Response, error) {
	var payload interface{}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &ProtocolError{URL: resp.URL, Body: string(resp.Body), Err: err}
	}
	switch v := payload.(type) {
	case map[string]interface{}:
		return Response(v), nil
	case nil:
		return Response{}, nil
	default:
		return nil, &ProtocolError{
			URL:  resp.URL,
			Body: string(resp.Body),
			Err:  fmt.Errorf("expected a JSON object, got %T", payload),
		}
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
