package wiki

import (
	"context"
	"net/http"
	"net/url"

	"github.com/olgasafonova/mediawiki-session/metrics"
)

// EditPage writes text to opts.Title, or to the current page handle's title.
//
// Unless opts.ForceEdit is set, an edit that would replace the handle's
// page with identical text is skipped: no request is sent and the result
// has Skipped set. Append and prepend edits are never skipped.
//
// The server's edit result is returned as-is in EditResult.Response; it is
// not checked for success.
func (s *Session) EditPage(ctx context.Context, text string, opts EditOptions) (EditResult, error) {
	s.mu.Lock()
	handle := s.page
	token := s.editToken
	s.mu.Unlock()

	title := opts.Title
	if title == "" {
		title = handle.title
	}
	if title == "" {
		return EditResult{}, &ValidationError{
			Field:   "title",
			Message: "no page title given and no page has been read",
			Suggestion: `Read the page first with GetPage, or pass EditOptions.Title.

Example:
  EditOptions{Title: "Sandbox"}`,
		}
	}

	partial := opts.AppendText != "" || opts.PrependText != ""

	if !opts.ForceEdit && !partial && handle.loaded && title == handle.title && text == handle.text {
		metrics.RecordEdit("skipped", len(text))
		s.logger.Debug("Edit skipped, text unchanged", "title", title)
		return EditResult{Skipped: true}, nil
	}

	params := url.Values{}
	params.Set("action", "edit")
	params.Set("title", title)
	params.Set("assert", "user")
	if text != "" || !partial {
		params.Set("text", text)
	}

	setIfNotEmpty(params, "appendtext", opts.AppendText)
	setIfNotEmpty(params, "prependtext", opts.PrependText)
	setIfNotEmpty(params, "summary", opts.Summary)
	setIfNotEmpty(params, "section", opts.Section)
	setIfNotEmpty(params, "md5", opts.MD5)
	setIfNotEmpty(params, "token", token)

	setFlag(params, "minor", opts.Minor)
	setFlag(params, "notminor", opts.NotMinor)
	setFlag(params, "bot", opts.Bot)
	setFlag(params, "createonly", opts.CreateOnly)
	setFlag(params, "nocreate", opts.NoCreate)

	header := http.Header{}
	header.Set("Content-Type", "multipart/form-data")

	resp, err := s.Request(ctx, params, true, header)
	if err != nil {
		metrics.RecordEdit("error", len(text))
		return EditResult{}, err
	}

	size := len(text) + len(opts.AppendText) + len(opts.PrependText)
	metrics.RecordEdit("sent", size)
	s.logger.Info("Edit sent", "title", title, "bytes", size)
	return EditResult{Response: resp}, nil
}

func setIfNotEmpty(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// setFlag encodes a boolean the way the API expects: present (with an
// empty value) for true, absent for false.
func setFlag(params url.Values, key string, on bool) {
	if on {
		params.Set(key, "")
	}
}
