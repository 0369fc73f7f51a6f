package legalaudit

import "context"

// Page is the outcome of fetching a URL.
type Page struct {
	// URL is the final URL after redirects.
	URL    string
	Status int
	// Headers holds response headers with lower-cased names.
	Headers map[string]string
	HTML    string
}

// Fetcher retrieves HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the URL and returns the page.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*Page, error)

	// Close releases resources held by the fetcher.
	Close() error
}
