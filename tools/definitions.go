package tools

// AllTools contains all tool specifications for the wiki session server.
// Tool descriptions follow a structured format for LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// READ TOOLS
	// ==========================================================================
	{
		Name:     "wiki_get_page",
		Method:   "GetPage",
		Title:    "Get Page",
		Category: "read",
		Description: `Read the current wikitext of a page.

USE WHEN: User asks "show me page X", "what does X say", or before editing a page.

NOT FOR: Listing pages or finding what changed (use wiki_get_recent_changes).

PARAMETERS:
- title: Page title (required)

RETURNS: The server-normalized title and the page wikitext. found=false when the page does not exist.

NOTE: The page read here becomes the session's current page. Editing it afterwards with unchanged text is skipped without a request.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "wiki_get_random_pages",
		Method:   "GetRandomPages",
		Title:    "Get Random Pages",
		Category: "read",
		Description: `Pick random page titles.

USE WHEN: User asks for "a random page", "some example pages", or wants to sample the wiki.

PARAMETERS:
- namespaces: Namespace ids to draw from (optional, e.g. [0] for articles)
- limit: Number of titles (default 20)

RETURNS: Titles in the order the server returned them.`,
		ReadOnly:  true,
		OpenWorld: true,
	},

	// ==========================================================================
	// FEED TOOLS
	// ==========================================================================
	{
		Name:     "wiki_get_recent_changes",
		Method:   "GetRecentChanges",
		Title:    "Get Recent Changes",
		Category: "feed",
		Description: `Page through the wiki's recent-changes feed.

USE WHEN: User asks "what changed recently", "who edited today", "show new pages".

PARAMETERS:
- properties: Fields per change (default title, ids, type, user, timestamp, comment, sizes, flags). "ids", "sizes" and "flags" expand into several fields.
- type: Change types, pipe-separated (edit|new|log|categorize)
- start / stop: Timestamp bounds (override continuation)
- continue: true to fetch the next batch after the previous call
- continue_from: rccontinue value to resume from in a new session (used with continue)
- limit: Batch size (default 5000)

RETURNS: Change records, and finished=true once the feed has no more batches.`,
		ReadOnly:  true,
		OpenWorld: true,
	},

	// ==========================================================================
	// WRITE TOOLS
	// ==========================================================================
	{
		Name:     "wiki_edit_page",
		Method:   "EditPage",
		Title:    "Edit Page",
		Category: "write",
		Description: `Replace, append to, or prepend to a page's wikitext.

USE WHEN: User says "change page X", "add a line to X", "create page X".

PARAMETERS:
- title: Page title (optional when a page was just read with wiki_get_page)
- text: New full wikitext (omit when only appending or prepending)
- append_text / prepend_text: Text added at the end / start
- summary: Edit summary
- section: Section number, or "new"
- md5: MD5 of the text, so the wiki can reject a corrupted upload
- minor, not_minor, bot, create_only, no_create: Edit flags
- force: Send even if the text is unchanged

RETURNS: Whether the edit was sent or skipped, and the server's result.

NOTE: Requires login credentials.`,
		Destructive: true,
		OpenWorld:   true,
	},

	// ==========================================================================
	// AUTH TOOLS
	// ==========================================================================
	{
		Name:     "wiki_fetch_edit_token",
		Method:   "FetchEditToken",
		Title:    "Refresh Edit Token",
		Category: "auth",
		Description: `Fetch a fresh edit token for the session.

USE WHEN: An edit failed with a bad or expired token.

PARAMETERS:
- title: Page the token is for (optional)

RETURNS: Whether a token was obtained. The token itself stays in the session.`,
		Idempotent: true,
		OpenWorld:  true,
	},
}
