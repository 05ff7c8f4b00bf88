package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/olgasafonova/mediawiki-session/internal/base"
	"github.com/olgasafonova/mediawiki-session/metrics"
)

// Login authenticates with the two-phase login handshake.
//
// Phase 1 posts the credentials and receives a one-time login token plus
// the cookies that tie the handshake together. Phase 2 posts again with the
// token, and its cookies become the session cookies. Servers that no longer
// hand out the token in phase 1 are asked for it via meta=tokens.
func (s *Session) Login(ctx context.Context, username, password string) error {
	params := url.Values{}
	params.Set("action", "login")
	params.Set("lgname", username)
	params.Set("lgpassword", password)

	first, payload, err := s.loginPhase(ctx, params, "login phase 1")
	if err != nil {
		return err
	}
	if isEmptyPayload(payload) {
		metrics.AuthFailures.WithLabelValues("empty_response").Inc()
		return &AuthError{
			Code:   AuthCodeEmptyResponse,
			Phase:  "login phase 1",
			Reason: "server returned no usable payload",
			URL:    first.URL,
			Body:   string(first.Body),
		}
	}

	s.setCookies(first.Cookies)

	token := loginField(payload, "token")
	if token == "" {
		token, err = s.fetchLoginToken(ctx)
		if err != nil {
			return err
		}
	}

	params.Set("lgtoken", token)
	second, payload, err := s.loginPhase(ctx, params, "login phase 2")
	if err != nil {
		return err
	}

	if result := loginField(payload, "result"); result != "" && result != "Success" {
		reason := result
		if detail := loginField(payload, "reason"); detail != "" {
			reason += ": " + detail
		}
		metrics.AuthFailures.WithLabelValues("rejected").Inc()
		return &AuthError{
			Code:   AuthCodeRejected,
			Phase:  "login phase 2",
			Reason: reason,
			URL:    second.URL,
			Body:   string(second.Body),
		}
	}

	s.setCookies(second.Cookies)
	s.mu.Lock()
	s.username = username
	s.mu.Unlock()

	s.logger.Info("Logged in", "user", username)
	return nil
}

// Logout sends action=logout and returns the parsed response.
// Local cookies, token, page handle and cursor are kept; a session is
// still "logged in" locally afterwards. Callers that reuse the session
// should Login again or create a new one.
func (s *Session) Logout(ctx context.Context) (Response, error) {
	params := url.Values{}
	params.Set("action", "logout")
	if token := s.EditToken(); token != "" {
		params.Set("token", token)
	}
	return s.Request(ctx, params, true, nil)
}

// loginPhase posts one handshake step and decodes its payload loosely:
// any JSON value is accepted so that empty or falsy payloads can be told
// apart from unparsable ones.
func (s *Session) loginPhase(ctx context.Context, params url.Values, phase string) (*base.Response, interface{}, error) {
	resp, err := s.Dispatch(ctx, params, true, nil)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("transport").Inc()
		aerr := &AuthError{Code: AuthCodeTransport, Phase: phase, Reason: "request failed", Err: err}
		var terr *TransportError
		if errors.As(err, &terr) {
			aerr.URL = terr.URL
			aerr.Body = terr.Body
		}
		return nil, nil, aerr
	}

	var payload interface{}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			metrics.AuthFailures.WithLabelValues("invalid_payload").Inc()
			return nil, nil, &AuthError{
				Code:   AuthCodeEmptyResponse,
				Phase:  phase,
				Reason: "unparsable payload",
				URL:    resp.URL,
				Body:   string(resp.Body),
				Err:    &ProtocolError{URL: resp.URL, Body: string(resp.Body), Err: err},
			}
		}
	}
	return resp, payload, nil
}

func (s *Session) fetchLoginToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", "login")

	resp, err := s.Dispatch(ctx, params, false, nil)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("transport").Inc()
		return "", &AuthError{Code: AuthCodeTransport, Phase: "login token", Reason: "request failed", Err: err}
	}
	s.mergeCookies(resp.Cookies)

	payload, err := decodeResponse(resp)
	if err == nil {
		if query, ok := payload["query"].(map[string]interface{}); ok {
			if tokens, ok := query["tokens"].(map[string]interface{}); ok {
				if token := getString(tokens["logintoken"]); token != "" {
					return token, nil
				}
			}
		}
	}

	metrics.AuthFailures.WithLabelValues("missing_token").Inc()
	return "", &AuthError{
		Code:   AuthCodeMissingToken,
		Phase:  "login token",
		Reason: "server returned no login token",
		URL:    resp.URL,
		Body:   string(resp.Body),
		Err:    err,
	}
}

// isEmptyPayload reports the JSON values that carry nothing usable
func isEmptyPayload(v interface{}) bool {
	switch p := v.(type) {
	case nil:
		return true
	case bool:
		return !p
	case float64:
		return p == 0
	case string:
		return p == ""
	case map[string]interface{}:
		return len(p) == 0
	case []interface{}:
		return len(p) == 0
	}
	return false
}

func loginField(payload interface{}, key string) string {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return ""
	}
	login, ok := obj["login"].(map[string]interface{})
	if !ok {
		return ""
	}
	return getString(login[key])
}
