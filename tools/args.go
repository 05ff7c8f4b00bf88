package tools

import "github.com/olgasafonova/mediawiki-session/wiki"

// GetPageArgs contains parameters for reading a page
type GetPageArgs struct {
	Title string `json:"title" jsonschema:"Page title to read"`
}

// GetPageResult is the result of reading a page
type GetPageResult struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Found   bool   `json:"found"`
	Message string `json:"message,omitempty"`
}

// EditPageArgs contains parameters for editing a page
type EditPageArgs struct {
	Title       string `json:"title,omitempty" jsonschema:"Page title (defaults to the page read last)"`
	Text        string `json:"text,omitempty" jsonschema:"New full wikitext"`
	AppendText  string `json:"append_text,omitempty" jsonschema:"Text to add at the end"`
	PrependText string `json:"prepend_text,omitempty" jsonschema:"Text to add at the start"`
	Summary     string `json:"summary,omitempty" jsonschema:"Edit summary"`
	Section     string `json:"section,omitempty" jsonschema:"Section number, or new"`
	MD5         string `json:"md5,omitempty" jsonschema:"MD5 of the text, rejected by the wiki on mismatch"`
	Minor       bool   `json:"minor,omitempty" jsonschema:"Mark as a minor edit"`
	NotMinor    bool   `json:"not_minor,omitempty" jsonschema:"Never mark as minor, even if the user preference says so"`
	Bot         bool   `json:"bot,omitempty" jsonschema:"Mark as a bot edit"`
	CreateOnly  bool   `json:"create_only,omitempty" jsonschema:"Fail if the page exists"`
	NoCreate    bool   `json:"no_create,omitempty" jsonschema:"Fail if the page does not exist"`
	Force       bool   `json:"force,omitempty" jsonschema:"Send even if the text is unchanged"`
}

// EditPageResult is the result of an edit
type EditPageResult struct {
	Title       string `json:"title"`
	Skipped     bool   `json:"skipped"`
	Result      string `json:"result,omitempty"`
	NewRevision int    `json:"new_revision,omitempty"`
	Message     string `json:"message"`
}

// GetRecentChangesArgs contains parameters for one recent-changes batch
type GetRecentChangesArgs struct {
	Properties   []string `json:"properties,omitempty" jsonschema:"Fields per change"`
	Type         string   `json:"type,omitempty" jsonschema:"Change types, pipe-separated"`
	Start        string   `json:"start,omitempty" jsonschema:"Start timestamp (ISO 8601)"`
	Stop         string   `json:"stop,omitempty" jsonschema:"Stop timestamp (ISO 8601)"`
	Continue     bool     `json:"continue,omitempty" jsonschema:"Fetch the batch after the previous call"`
	ContinueFrom string   `json:"continue_from,omitempty" jsonschema:"rccontinue value to resume from when the session has none"`
	Limit        int      `json:"limit,omitempty" jsonschema:"Batch size (default 5000)"`
}

// GetRecentChangesResult is one batch of the feed
type GetRecentChangesResult struct {
	Changes  []wiki.Change `json:"changes"`
	Count    int           `json:"count"`
	Finished bool          `json:"finished"`
}

// GetRandomPagesArgs contains parameters for random page selection
type GetRandomPagesArgs struct {
	Namespaces []int `json:"namespaces,omitempty" jsonschema:"Namespace ids to draw from"`
	Limit      int   `json:"limit,omitempty" jsonschema:"Number of titles (default 20)"`
}

// GetRandomPagesResult lists random titles in server order
type GetRandomPagesResult struct {
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
}

// FetchEditTokenArgs contains parameters for a token refresh
type FetchEditTokenArgs struct {
	Title string `json:"title,omitempty" jsonschema:"Page the token is for"`
}

// FetchEditTokenResult reports whether a token was obtained
type FetchEditTokenResult struct {
	Obtained bool   `json:"obtained"`
	Message  string `json:"message,omitempty"`
}
