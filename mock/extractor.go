package mock

import "github.com/fwojciec/legalaudit"

var _ legalaudit.TextExtractor = (*TextExtractor)(nil)

// TextExtractor is a mock implementation of legalaudit.TextExtractor.
type TextExtractor struct {
	ExtractTextFn func(html string) (*legalaudit.TextResult, error)
}

func (e *TextExtractor) ExtractText(html string) (*legalaudit.TextResult, error) {
	return e.ExtractTextFn(html)
}
