package trafilatura

import (
	"strings"

	"github.com/fwojciec/legalaudit"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements legalaudit.TextExtractor at compile time.
var _ legalaudit.TextExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract the main text of a page,
// dropping navigation, footers and comment sections.
type Extractor struct {
	maxChars int
}

// NewExtractor creates a new Extractor. maxChars caps the text in runes;
// zero disables the cap.
func NewExtractor(maxChars int) *Extractor {
	return &Extractor{maxChars: max(0, maxChars)}
}

// ExtractText processes raw HTML and returns the normalized main text.
func (e *Extractor) ExtractText(rawHTML string) (*legalaudit.TextResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return &legalaudit.TextResult{}, nil
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "parsing HTML: %v", err)
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
	}

	result, err := trafilatura.ExtractDocument(doc, opts)
	if err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "extracting main content: %v", err)
	}

	text := legalaudit.NormalizeText(result.ContentText)
	return &legalaudit.TextResult{
		Title: strings.TrimSpace(result.Metadata.Title),
		Text:  legalaudit.TruncateRunes(text, e.maxChars),
	}, nil
}
