package htmltomarkdown

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/legalaudit"
)

// Ensure Converter implements legalaudit.Converter at compile time.
var _ legalaudit.Converter = (*Converter)(nil)

// Converter wraps html-to-markdown to render legal pages as Markdown.
type Converter struct {
	conv     *converter.Converter
	maxChars int
}

// Option configures a Converter.
type Option func(*Converter)

// WithMaxChars caps the Markdown output in runes. Zero disables the cap.
func WithMaxChars(n int) Option {
	return func(c *Converter) {
		c.maxChars = max(0, n)
	}
}

// NewConverter creates a new Converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert transforms HTML content into Markdown.
func (c *Converter) Convert(html, pageURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	var result string
	var err error
	if domain := origin(pageURL); domain != "" {
		result, err = c.conv.ConvertString(html, converter.WithDomain(domain))
	} else {
		result, err = c.conv.ConvertString(html)
	}
	if err != nil {
		return "", legalaudit.Errorf(legalaudit.EINVALID, "converting HTML: %v", err)
	}

	return legalaudit.TruncateRunes(strings.TrimSpace(result), c.maxChars), nil
}

// origin returns scheme://host of raw, or "" if raw is not absolute.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
