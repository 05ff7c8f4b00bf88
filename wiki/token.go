package wiki

import (
	"context"
	"net/url"
)

// fillerTitle is queried when no page-specific token is needed; the server
// issues an edit token against any title.
const fillerTitle = "a"

// FetchEditToken requests an edit token against page (or a filler title
// when page is empty) and caches it. The first page entry carrying an
// edittoken, in server order, wins. When none does, a *TokenNotFoundError
// is returned and the previously cached token is kept.
func (s *Session) FetchEditToken(ctx context.Context, page string) (string, error) {
	title := page
	if title == "" {
		title = fillerTitle
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "info")
	params.Set("intoken", "edit")
	params.Set("titles", title)

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
		if token := getString(p["edittoken"]); token != "" {
			s.setEditToken(token)
			s.logger.Debug("Edit token cached", "title", title)
			return token, nil
		}
	}

	notFound := &TokenNotFoundError{Kind: "edit", Title: title, URL: resp.URL}
	if env.Error != nil {
		notFound.Err = env.Error
	}
	return "", notFound
}

// FetchCSRFToken requests a token with meta=tokens, for servers where
// intoken is gone, and caches it like FetchEditToken does.
func (s *Session) FetchCSRFToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", "csrf")

	resp, err := s.Dispatch(ctx, params, false, nil)
	if err != nil {
		return "", err
	}

	env, err := decodePagesEnvelope(resp)
	if err != nil {
		return "", err
	}

	token := env.Query.Tokens["csrftoken"]
	// "+\" is the anonymous token; it cannot authorize an edit
	if token == "" || token == `+\` {
		notFound := &TokenNotFoundError{Kind: "csrf", URL: resp.URL}
		if env.Error != nil {
			notFound.Err = env.Error
		}
		return "", notFound
	}

	s.setEditToken(token)
	return token, nil
}
