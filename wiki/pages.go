package wiki

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/olgasafonova/mediawiki-session/internal/base"
)

// pagesEnvelope is the part of a prop=... query response we scan.
// Pages stays raw so entries can be walked in server order.
type pagesEnvelope struct {
	Error *APIError `json:"error"`
	Query struct {
		Pages  json.RawMessage   `json:"pages"`
		Tokens map[string]string `json:"tokens"`
	} `json:"query"`
}

func decodePagesEnvelope(resp *base.Response) (*pagesEnvelope, error) {
	var env pagesEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, &ProtocolError{URL: resp.URL, Body: string(resp.Body), Err: err}
	}
	return &env, nil
}

// orderedPages returns the entries of query.pages in the order the server
// wrote them. Both the keyed-object form ({"123": {...}}) and the array
// form (formatversion=2) are accepted. Absent pages yield no entries.
func orderedPages(raw json.RawMessage) ([]map[string]interface{}, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []map[string]interface{}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("pages: unexpected token %v", tok)
	}

	var pages []map[string]interface{}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var page map[string]interface{}
		if err := dec.Decode(&page); err != nil {
			return nil, err
		}
		if page != nil {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

// revisionText extracts the latest revision's text from a page entry,
// accepting the legacy "*" key, "content", and the slots layout.
func revisionText(page map[string]interface{}) (string, bool) {
	revs, ok := page["revisions"].([]interface{})
	if !ok || len(revs) == 0 {
		return "", false
	}
	rev, ok := revs[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	if text, ok := contentField(rev); ok {
		return text, true
	}
	if slots, ok := rev["slots"].(map[string]interface{}); ok {
		if main, ok := slots["main"].(map[string]interface{}); ok {
			return contentField(main)
		}
	}
	return "", false
}

func contentField(m map[string]interface{}) (string, bool) {
	if text, ok := m["*"].(string); ok {
		return text, true
	}
	if text, ok := m["content"].(string); ok {
		return text, true
	}
	return "", false
}
