// Package search defines the web search capability used for evidence
// gathering, plus the Tavily-backed default implementation.
package search

import (
	"context"
)

// Provider defines the interface for web search backends.
// Implementations can wrap Tavily, SerpAPI, Jina, Google Custom Search, etc.
type Provider interface {
	// Search performs a web search. An empty result list is a valid,
	// non-error response.
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
	// Name returns the provider name.
	Name() string
}

// Options configures a single search request.
type Options struct {
	MaxResults int    `json:"max_results"`          // Maximum number of results (default: 8)
	Depth      string `json:"depth,omitempty"`      // "basic" or "advanced"
	TimeRange  string `json:"time_range,omitempty"` // "day", "week", "month", "year"
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxResults: 8,
		Depth:      "advanced",
	}
}

// Result represents a single search result.
type Result struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Content     string  `json:"content,omitempty"`        // Snippet or extracted content
	PublishedAt string  `json:"published_date,omitempty"` // Publication date if known
	Score       float64 `json:"score,omitempty"`          // Provider relevance score
}
