// Package tools provides a metadata-driven registry for MCP tool definitions.
// Tools are defined declaratively in AllTools and bound to session
// operations by type-safe handlers.
package tools

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to a HandlerRegistry method with matching Args/Result types.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "wiki_get_page")
	Name string

	// Method is the handler method name (e.g., "GetPage")
	Method string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (read, write, feed, auth)
	Category string

	// ReadOnly indicates the tool doesn't modify wiki content
	ReadOnly bool

	// Destructive indicates the tool can overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool
}

// ToolsByCategory returns the specs in a category
func ToolsByCategory(category string) []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			out = append(out, spec)
		}
	}
	return out
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}
