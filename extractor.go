package legalaudit

// TextResult holds plain text extracted from an HTML page.
type TextResult struct {
	Title string
	Text  string
}

// TextExtractor flattens HTML into audit-friendly plain text.
type TextExtractor interface {
	// ExtractText parses raw HTML and returns normalized plain text.
	// Empty input yields an empty result rather than an error.
	ExtractText(html string) (*TextResult, error)
}
