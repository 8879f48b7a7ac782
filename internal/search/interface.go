package search

import "github.com/pders01/treehole/internal/api"

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// UpdateListener can be implemented by search engines that maintain
// an external index and want to be notified about fetched posts.
type UpdateListener interface {
	OnPostsFetched(posts []api.Post)
}

// DebugStatser provides lightweight stats for visibility/debugging.
// Implemented by engines that can report index doc counts, etc.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is one matching post with its relevance score.
type Result struct {
	Post    *api.Post
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "content", "author", "location"
	Text   string // matched text snippet
	Weight float64
}
