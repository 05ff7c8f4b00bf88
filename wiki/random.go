package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// GetRandomPages returns up to limit random titles, optionally restricted
// to namespaces, in the order the server returned them. A non-positive
// limit uses DefaultRandomLimit. There is no continuation.
func (s *Session) GetRandomPages(ctx context.Context, namespaces []int, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRandomLimit
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "random")
	params.Set("rnlimit", strconv.Itoa(limit))
	if len(namespaces) > 0 {
		ns := make([]string, len(namespaces))
		for i, n := range namespaces {
			ns[i] = strconv.Itoa(n)
		}
		params.Set("rnnamespace", strings.Join(ns, "|"))
	}

	raw, err := s.Dispatch(ctx, params, false, nil)
	if err != nil {
		return nil, err
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}

	query, _ := resp["query"].(map[string]interface{})
	list, ok := query["random"].([]interface{})
	if !ok {
		return nil, &DataShapeError{
			Operation: "random pages",
			Path:      "query.random",
			URL:       raw.URL,
			Body:      string(raw.Body),
			Err:       resp.APIError(),
		}
	}

	titles := make([]string, 0, len(list))
	for i, item := range list {
		entry, _ := item.(map[string]interface{})
		title, ok := entry["title"].(string)
		if !ok {
			return nil, &DataShapeError{
				Operation: "random pages",
				Path:      fmt.Sprintf("query.random[%d].title", i),
				URL:       raw.URL,
				Body:      string(raw.Body),
			}
		}
		titles = append(titles, title)
	}
	return titles, nil
}
