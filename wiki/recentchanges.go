package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/olgasafonova/mediawiki-session/metrics"
)

// propertyAliases are rcprop groups that the server answers with several
// fields (or with presence-coded flags) rather than one field of that name.
var propertyAliases = map[string][]string{
	"ids":   {"rcid", "pageid", "revid", "old_revid"},
	"sizes": {"oldlen", "newlen"},
	"flags": {"new", "minor", "bot"},
}

// recordField is one output key of a Change
type recordField struct {
	name string
	flag bool // presence-coded on the wire, reported as a bool
}

// GetRecentChanges fetches one batch of the recent-changes feed.
//
// Without opts.Continue the stored cursor is reset and the feed starts
// over. With it, the stored cursor is attached (or opts.ContinueFrom when
// nothing is stored), unless an explicit Start or Stop is given. Once the
// server stops returning a continuation the feed is finished, and further
// continued calls return no records without a request.
func (s *Session) GetRecentChanges(ctx context.Context, opts RecentChangesOptions) ([]Change, error) {
	props := opts.Properties
	if len(props) == 0 {
		props = DefaultRecentChangesProperties
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRecentChangesLimit
	}

	s.mu.Lock()
	if !opts.Continue {
		s.cursor = Cursor{}
	}
	cursor := s.cursor
	s.mu.Unlock()

	if opts.Continue && cursor.Finished {
		return []Change{}, nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "recentchanges")
	params.Set("rcprop", strings.Join(props, "|"))
	params.Set("rclimit", strconv.Itoa(limit))
	setIfNotEmpty(params, "rctype", opts.Type)
	setIfNotEmpty(params, "rcstart", opts.Start)
	setIfNotEmpty(params, "rcend", opts.Stop)

	if opts.Continue && opts.Start == "" && opts.Stop == "" {
		switch {
		case cursor.Value != "":
			params.Set(cursor.Param, cursor.Value)
		case opts.ContinueFrom != "":
			params.Set("rccontinue", opts.ContinueFrom)
		}
	}

	raw, err := s.Dispatch(ctx, params, false, nil)
	if err != nil {
		return nil, err
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}

	shapeErr := func(path string, err error) error {
		return &DataShapeError{Operation: "recent changes", Path: path, URL: raw.URL, Body: string(raw.Body), Err: err}
	}

	query, ok := resp["query"].(map[string]interface{})
	if !ok {
		return nil, shapeErr("query", resp.APIError())
	}
	list, ok := query["recentchanges"].([]interface{})
	if !ok {
		return nil, shapeErr("query.recentchanges", nil)
	}

	fields := expandProperties(props)
	changes := make([]Change, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, shapeErr(fmt.Sprintf("query.recentchanges[%d]", i), nil)
		}
		changes = append(changes, buildChange(entry, fields))
	}

	next, err := nextCursor(resp)
	if err != nil {
		return nil, shapeErr("continue", err)
	}

	s.mu.Lock()
	s.cursor = next
	s.mu.Unlock()

	metrics.RecordRecentChangesBatch(next.Finished)
	s.logger.Debug("Recent changes batch",
		"count", len(changes),
		"finished", next.Finished)
	return changes, nil
}

// expandProperties turns requested rcprop values into output keys,
// unpacking aliases and dropping duplicates while keeping order.
func expandProperties(props []string) []recordField {
	seen := make(map[string]bool)
	var fields []recordField
	add := func(f recordField) {
		if !seen[f.name] {
			seen[f.name] = true
			fields = append(fields, f)
		}
	}
	for _, p := range props {
		expanded, ok := propertyAliases[p]
		if !ok {
			add(recordField{name: p})
			continue
		}
		for _, name := range expanded {
			add(recordField{name: name, flag: p == "flags"})
		}
	}
	return fields
}

func buildChange(entry map[string]interface{}, fields []recordField) Change {
	change := make(Change, len(fields))
	for _, f := range fields {
		if f.flag {
			_, present := entry[f.name]
			change[f.name] = present
			continue
		}
		change[f.name] = entry[f.name]
	}
	return change
}

// nextCursor reads the continuation from either the current
// continue.rccontinue form or the legacy query-continue block.
// No continuation means the feed is finished.
func nextCursor(resp Response) (Cursor, error) {
	if raw, present := resp["continue"]; present {
		cont, ok := raw.(map[string]interface{})
		if !ok {
			return Cursor{}, fmt.Errorf("continue is %T, not an object", raw)
		}
		if v := getString(cont["rccontinue"]); v != "" {
			return Cursor{Param: "rccontinue", Value: v}, nil
		}
	}

	if legacy, ok := resp["query-continue"].(map[string]interface{}); ok {
		if rc, ok := legacy["recentchanges"].(map[string]interface{}); ok {
			for _, param := range []string{"rccontinue", "rcstart"} {
				if v := getString(rc[param]); v != "" {
					return Cursor{Param: param, Value: v}, nil
				}
			}
		}
	}

	return Cursor{Finished: true}, nil
}
