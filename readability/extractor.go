package readability

import (
	"strings"

	"github.com/fwojciec/legalaudit"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements legalaudit.TextExtractor at compile time.
var _ legalaudit.TextExtractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract the article text of a page.
type Extractor struct {
	maxChars int
}

// NewExtractor creates a new Extractor. maxChars caps the text in runes;
// zero disables the cap.
func NewExtractor(maxChars int) *Extractor {
	return &Extractor{maxChars: max(0, maxChars)}
}

// ExtractText processes raw HTML and returns the normalized article text.
func (e *Extractor) ExtractText(rawHTML string) (*legalaudit.TextResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return &legalaudit.TextResult{}, nil
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "extracting article: %v", err)
	}

	text := legalaudit.NormalizeText(article.TextContent)
	return &legalaudit.TextResult{
		Title: strings.TrimSpace(article.Title),
		Text:  legalaudit.TruncateRunes(text, e.maxChars),
	}, nil
}
