package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/legalaudit"
)

// DefaultMaxChars caps extracted text length in runes.
const DefaultMaxChars = 500_000

// noiseSelector matches elements that never carry readable policy text.
const noiseSelector = "script, style, noscript, template, svg, canvas, iframe, picture, source, video, audio"

var _ legalaudit.TextExtractor = (*TextExtractor)(nil)

// TextExtractor flattens a whole HTML document into plain text. Unlike the
// main-content extractors it keeps headers, footers and sidebars, which is
// where short legal notices often live.
type TextExtractor struct {
	keepTitle bool
	maxChars  int
}

// TextOption configures a TextExtractor.
type TextOption func(*TextExtractor)

// WithoutTitle drops the <title> prefix from extracted text.
func WithoutTitle() TextOption {
	return func(e *TextExtractor) {
		e.keepTitle = false
	}
}

// WithMaxChars caps the extracted text in runes. Zero disables the cap.
func WithMaxChars(n int) TextOption {
	return func(e *TextExtractor) {
		e.maxChars = max(0, n)
	}
}

// NewTextExtractor creates a new TextExtractor.
func NewTextExtractor(opts ...TextOption) *TextExtractor {
	e := &TextExtractor{keepTitle: true, maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractText returns the title and the normalized document text. When
// the title is kept, Text starts with it followed by a blank line.
func (e *TextExtractor) ExtractText(html string) (*legalaudit.TextResult, error) {
	if html == "" {
		return &legalaudit.TextResult{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "failed to parse HTML: %v", err)
	}
	doc.Find(noiseSelector).Remove()

	var title string
	if e.keepTitle {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	var body string
	if b := doc.Find("body"); b.Length() > 0 {
		body = b.Text()
	} else {
		body = doc.Text()
	}

	text := body
	if title != "" {
		text = title + "\n\n" + body
	}
	text = legalaudit.TruncateRunes(legalaudit.NormalizeText(text), e.maxChars)

	return &legalaudit.TextResult{Title: title, Text: text}, nil
}
