package legalaudit

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert renders a page's HTML as Markdown so that reviewers can read
	// the published legal text with its headings and lists intact.
	// Relative links are resolved against pageURL when it is non-empty.
	// Empty input yields empty output.
	Convert(html, pageURL string) (string, error)
}
