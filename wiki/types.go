package wiki

// Response is a parsed API payload, keyed by action result name
// ("query", "login", "edit", ...).
type Response map[string]interface{}

// APIError returns the server-reported error object, if the payload has one.
// The session never calls this on its own; callers decide what counts as failure.
func (r Response) APIError() error {
	obj, ok := r["error"].(map[string]interface{})
	if !ok {
		return nil
	}
	return &APIError{
		Code: getString(obj["code"]),
		Info: getString(obj["info"]),
	}
}

// ========== Page Types ==========

// DefaultInfoProperties are the inprop values requested when PageOptions leaves them nil
var DefaultInfoProperties = []string{
	"protection", "talkid", "watched", "watchers", "notificationtimestamp",
	"subjectid", "url", "readable", "preload", "displaytitle",
}

// DefaultTokenKinds are the intoken values requested when PageOptions leaves them nil
var DefaultTokenKinds = []string{
	"edit", "delete", "protect", "move", "block", "unblock", "email", "import", "watch",
}

// PageOptions selects the extra data fetched alongside page text.
// A nil slice requests the default set; an empty non-nil slice requests none.
type PageOptions struct {
	InfoProperties []string
	TokenKinds     []string
}

// ========== Edit Types ==========

// EditOptions enumerates every recognized edit field.
// Boolean flags are sent as present-with-empty-value when true and omitted when false.
type EditOptions struct {
	// Title overrides the current page handle's title
	Title string

	AppendText  string
	PrependText string
	Summary     string
	Section     string
	MD5         string

	Minor      bool
	NotMinor   bool
	Bot        bool
	CreateOnly bool
	NoCreate   bool

	// ForceEdit sends the edit even when text matches the last read
	ForceEdit bool
}

// EditResult is the outcome of EditPage. Skipped is true when no request
// was sent because the text was unchanged; Response is nil in that case.
type EditResult struct {
	Skipped  bool
	Response Response
}

// ========== Recent Changes Types ==========

// DefaultRecentChangesProperties is the rcprop set used when none is given
var DefaultRecentChangesProperties = []string{
	"title", "ids", "type", "user", "timestamp", "comment", "sizes", "flags",
}

// DefaultRecentChangesLimit is the page size used when none is given
const DefaultRecentChangesLimit = 5000

// RecentChangesOptions controls one recent-changes fetch.
type RecentChangesOptions struct {
	Properties []string
	Type       string // rctype, pipe-separated (edit|new|log|...)
	Start      string // rcstart; suppresses the stored cursor
	Stop       string // rcend; suppresses the stored cursor

	// Continue resumes from the stored cursor. When false the cursor and
	// finished flag are reset and the feed starts over.
	Continue bool

	// ContinueFrom is used when Continue is set and no cursor is stored
	ContinueFrom string

	Limit int
}

// Change is one recent-changes record holding exactly the requested
// (alias-expanded) properties. Missing values are nil.
type Change map[string]interface{}

// Cursor is the recent-changes pagination position.
type Cursor struct {
	Param    string // "rccontinue" or the legacy "rcstart"
	Value    string
	Finished bool
}

// ========== Random Pages ==========

// DefaultRandomLimit is used when GetRandomPages gets a non-positive limit
const DefaultRandomLimit = 20

func getString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
