// Package search provides full-text lookup over catalogue sessions.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Unit    string `json:"unit"`
	Program string `json:"program"`
	Level   string `json:"level"`
	Snippet string `json:"snippet,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text    string
	Program string // empty = all programs
	Level   string // empty = all levels
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// SessionRecord is the data we index for a catalogue session.
type SessionRecord struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	Unit      string `json:"unit"`
	Objective string `json:"objective"`
	Program   string `json:"program"`
	Level     string `json:"level"`
}
