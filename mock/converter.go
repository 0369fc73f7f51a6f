package mock

import "github.com/fwojciec/legalaudit"

var _ legalaudit.Converter = (*Converter)(nil)

// Converter is a mock implementation of legalaudit.Converter.
type Converter struct {
	ConvertFn func(html, pageURL string) (string, error)
}

func (c *Converter) Convert(html, pageURL string) (string, error) {
	return c.ConvertFn(html, pageURL)
}
