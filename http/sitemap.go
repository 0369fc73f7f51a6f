package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/legalaudit"
)

// DefaultMaxSitemaps bounds how many sitemap documents one discovery reads,
// including nested index entries.
const DefaultMaxSitemaps = 16

// DefaultMaxSitemapBytes caps the size of a single sitemap document.
const DefaultMaxSitemapBytes = 10 << 20

var _ legalaudit.SitemapService = (*SitemapService)(nil)

// SitemapService discovers URLs from website sitemaps via HTTP.
type SitemapService struct {
	client      *http.Client
	userAgent   string
	maxSitemaps int
	maxBytes    int64
}

// SitemapOption configures a SitemapService.
type SitemapOption func(*SitemapService)

// WithSitemapUserAgent sets the User-Agent sent for robots.txt and sitemaps.
func WithSitemapUserAgent(ua string) SitemapOption {
	return func(s *SitemapService) {
		s.userAgent = ua
	}
}

// WithMaxSitemaps bounds the number of sitemap documents read.
func WithMaxSitemaps(n int) SitemapOption {
	return func(s *SitemapService) {
		s.maxSitemaps = n
	}
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client, opts ...SitemapOption) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	s := &SitemapService{
		client:      client,
		maxSitemaps: DefaultMaxSitemaps,
		maxBytes:    DefaultMaxSitemapBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiscoverURLs lists the URLs published in the sitemaps of baseURL's origin.
// Legal pages usually live outside any section path, so the whole site is
// considered. Returns an empty slice (not nil) if no sitemaps are found.
// A sitemap that cannot be fetched or parsed is skipped.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *legalaudit.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "invalid base URL %q", baseURL)
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}

	queue := s.robotsSitemaps(ctx, origin)
	if len(queue) == 0 {
		queue = []string{origin.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()}
	}

	urls := []string{}
	seenSitemaps := make(map[string]bool)
	seenURLs := make(map[string]bool)

	for len(queue) > 0 && len(seenSitemaps) < s.maxSitemaps {
		sitemapURL := queue[0]
		queue = queue[1:]
		if seenSitemaps[sitemapURL] {
			continue
		}
		seenSitemaps[sitemapURL] = true

		children, locs, err := s.readSitemap(ctx, sitemapURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		queue = append(queue, children...)

		for _, u := range locs {
			if seenURLs[u] || !filter.Match(u) {
				continue
			}
			seenURLs[u] = true
			urls = append(urls, u)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

// robotsSitemaps returns the Sitemap: directives of the origin's robots.txt.
func (s *SitemapService) robotsSitemaps(ctx context.Context, origin *url.URL) []string {
	robotsURL := origin.ResolveReference(&url.URL{Path: "/robots.txt"})
	body, err := s.get(ctx, robotsURL.String())
	if err != nil {
		return nil
	}
	defer body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			if u := strings.TrimSpace(line[len("sitemap:"):]); u != "" {
				sitemaps = append(sitemaps, u)
			}
		}
	}
	return sitemaps
}

// readSitemap fetches one sitemap. A <sitemapindex> yields children to
// visit; a <urlset> yields page URLs.
func (s *SitemapService) readSitemap(ctx context.Context, sitemapURL string) (children, locs []string, err error) {
	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(io.LimitReader(body, s.maxBytes)); err != nil {
		return nil, nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("empty sitemap XML")
	}

	if root.Tag == "sitemapindex" {
		return locValues(root, "sitemap"), nil, nil
	}
	return nil, locValues(root, "url"), nil
}

// locValues returns the trimmed <loc> text of each child element named tag.
func locValues(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if u := strings.TrimSpace(loc.Text()); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (s *SitemapService) get(ctx context.Context, targetURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, legalaudit.Errorf(legalaudit.EUPSTREAM, "HTTP %d for %s", resp.StatusCode, targetURL)
	}
	return resp.Body, nil
}
