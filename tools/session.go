package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/olgasafonova/mediawiki-session/wiki"
)

// GetPage reads a page and makes it the session's current page
func (h *HandlerRegistry) GetPage(ctx context.Context, args GetPageArgs) (GetPageResult, error) {
	if args.Title == "" {
		return GetPageResult{}, &wiki.ValidationError{Field: "title", Message: "title is required"}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	text, err := h.session.GetPage(ctx, args.Title, nil)
	if err != nil {
		var notFound *wiki.PageNotFoundError
		if errors.As(err, &notFound) {
			return GetPageResult{
				Title:   args.Title,
				Found:   false,
				Message: fmt.Sprintf("Page %q does not exist", args.Title),
			}, nil
		}
		return GetPageResult{}, err
	}

	title, _, _ := h.session.CurrentPage()
	return GetPageResult{
		Title:   title,
		Content: text,
		Found:   true,
	}, nil
}

// EditPage writes a page, fetching an edit token first when none is cached
func (h *HandlerRegistry) EditPage(ctx context.Context, args EditPageArgs) (EditPageResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	title := args.Title
	if title == "" {
		title, _, _ = h.session.CurrentPage()
	}
	if title == "" {
		return EditPageResult{}, &wiki.ValidationError{
			Field:      "title",
			Message:    "no title given and no page has been read",
			Suggestion: "Pass title, or read the page with wiki_get_page first",
		}
	}

	if h.session.EditToken() == "" {
		if err := h.ensureEditToken(ctx, title); err != nil {
			return EditPageResult{}, err
		}
	}

	res, err := h.session.EditPage(ctx, args.Text, wiki.EditOptions{
		Title:       args.Title,
		AppendText:  args.AppendText,
		PrependText: args.PrependText,
		Summary:     args.Summary,
		Section:     args.Section,
		MD5:         args.MD5,
		Minor:       args.Minor,
		NotMinor:    args.NotMinor,
		Bot:         args.Bot,
		CreateOnly:  args.CreateOnly,
		NoCreate:    args.NoCreate,
		ForceEdit:   args.Force,
	})
	if err != nil {
		return EditPageResult{}, err
	}

	if res.Skipped {
		return EditPageResult{
			Title:   title,
			Skipped: true,
			Message: "Text unchanged since the last read; no edit sent",
		}, nil
	}

	if apiErr := res.Response.APIError(); apiErr != nil {
		return EditPageResult{}, apiErr
	}

	out := EditPageResult{Title: title}
	if edit, ok := res.Response["edit"].(map[string]interface{}); ok {
		out.Result, _ = edit["result"].(string)
		if rev, ok := edit["newrevid"].(float64); ok {
			out.NewRevision = int(rev)
		}
		if t, ok := edit["title"].(string); ok && t != "" {
			out.Title = t
		}
	}
	out.Message = fmt.Sprintf("Edit sent (result: %s)", out.Result)
	return out, nil
}

// GetRecentChanges fetches one batch of the recent-changes feed
func (h *HandlerRegistry) GetRecentChanges(ctx context.Context, args GetRecentChangesArgs) (GetRecentChangesResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	changes, err := h.session.GetRecentChanges(ctx, wiki.RecentChangesOptions{
		Properties:   args.Properties,
		Type:         args.Type,
		Start:        args.Start,
		Stop:         args.Stop,
		Continue:     args.Continue,
		ContinueFrom: args.ContinueFrom,
		Limit:        args.Limit,
	})
	if err != nil {
		return GetRecentChangesResult{}, err
	}

	if changes == nil {
		changes = []wiki.Change{}
	}
	return GetRecentChangesResult{
		Changes:  changes,
		Count:    len(changes),
		Finished: h.session.RecentChangesCursor().Finished,
	}, nil
}

// GetRandomPages picks random titles
func (h *HandlerRegistry) GetRandomPages(ctx context.Context, args GetRandomPagesArgs) (GetRandomPagesResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	titles, err := h.session.GetRandomPages(ctx, args.Namespaces, args.Limit)
	if err != nil {
		return GetRandomPagesResult{}, err
	}
	if titles == nil {
		titles = []string{}
	}
	return GetRandomPagesResult{Titles: titles, Count: len(titles)}, nil
}

// FetchEditToken refreshes the session's edit token
func (h *HandlerRegistry) FetchEditToken(ctx context.Context, args FetchEditTokenArgs) (FetchEditTokenResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureEditToken(ctx, args.Title); err != nil {
		var notFound *wiki.TokenNotFoundError
		if errors.As(err, &notFound) {
			return FetchEditTokenResult{
				Obtained: false,
				Message:  "The wiki did not issue an edit token; check that the session is logged in",
			}, nil
		}
		return FetchEditTokenResult{}, err
	}
	return FetchEditTokenResult{Obtained: true}, nil
}

// ensureEditToken tries the intoken query first and falls back to meta=tokens.
// Callers hold h.mu.
func (h *HandlerRegistry) ensureEditToken(ctx context.Context, title string) error {
	_, err := h.session.FetchEditToken(ctx, title)
	if err == nil {
		return nil
	}
	var notFound *wiki.TokenNotFoundError
	if !errors.As(err, &notFound) {
		return err
	}

	h.logger.Debug("intoken gave no edit token, trying meta=tokens", "title", title)
	if _, csrfErr := h.session.FetchCSRFToken(ctx); csrfErr != nil {
		return csrfErr
	}
	return nil
}
