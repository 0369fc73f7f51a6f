package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.LinkFinder = (*LinkFinder)(nil)

// LinkFinder picks the first anchor on a page that points at a legal page.
type LinkFinder struct{}

// NewLinkFinder creates a new LinkFinder.
func NewLinkFinder() *LinkFinder {
	return &LinkFinder{}
}

// FindCandidateLink walks <a href> elements in document order and returns
// the first absolute URL matching one of tails. Empty inputs and an
// unparseable origin yield no candidate rather than an error.
func (f *LinkFinder) FindCandidateLink(html, origin string, tails []string, opts legalaudit.LinkOptions) (string, error) {
	if html == "" || origin == "" || len(tails) == 0 {
		return "", nil
	}
	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", legalaudit.Errorf(legalaudit.EINVALID, "failed to parse HTML: %v", err)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		abs, ok := resolveHref(base, href)
		if !ok {
			return true
		}
		if opts.SameHostOnly && !isSameHost(base, abs) {
			return true
		}
		if legalaudit.MatchesTails(abs.String(), tails) {
			found = abs.String()
			return false
		}
		return true
	})
	return found, nil
}

// resolveHref resolves href against base. Fragment-only placeholders and
// script, mail and phone links are rejected.
func resolveHref(base *url.URL, href string) (*url.URL, bool) {
	h := strings.TrimSpace(href)
	if h == "" || h == "#" || isNonHTTPLink(h) {
		return nil, false
	}
	ref, err := url.Parse(h)
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(ref), true
}

// isSameHost compares hostnames, ignoring ports.
func isSameHost(base, u *url.URL) bool {
	return strings.EqualFold(u.Hostname(), base.Hostname())
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(href)
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:")
}
