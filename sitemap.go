package legalaudit

import (
	"context"
	"regexp"
	"strings"
)

// SitemapService discovers URLs from website sitemaps.
type SitemapService interface {
	// DiscoverURLs lists the URLs a site publishes in its sitemap.
	// robots.txt Sitemap directives are honored before /sitemap.xml, and
	// sitemap indexes are followed. A nil filter keeps every URL.
	DiscoverURLs(ctx context.Context, baseURL string, filter *URLFilter) ([]string, error)
}

// URLFilter keeps or drops URLs by pattern.
type URLFilter struct {
	// Include, when non-empty, keeps only URLs matching at least one pattern.
	Include []*regexp.Regexp

	// Exclude drops URLs matching any pattern. Applied after Include.
	Exclude []*regexp.Regexp
}

// NewTailFilter returns a filter that keeps URLs containing "/<tail>" for
// any tail, ignoring case.
func NewTailFilter(tails []string) *URLFilter {
	f := &URLFilter{}
	for _, t := range tails {
		if t == "" {
			continue
		}
		f.Include = append(f.Include, regexp.MustCompile(`(?i)/`+regexp.QuoteMeta(strings.ToLower(t))))
	}
	return f
}

// Match returns true if the URL passes the filter.
// A nil filter passes everything.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}

	if len(f.Include) > 0 {
		matched := false
		for _, re := range f.Include {
			if re.MatchString(url) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, re := range f.Exclude {
		if re.MatchString(url) {
			return false
		}
	}

	return true
}
