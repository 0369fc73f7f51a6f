package audit_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/audit"
	"github.com/fwojciec/legalaudit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// site serves fixed pages by URL and records fetches.
type site struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (*legalaudit.Page, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.fetched = append(s.fetched, url)
			html, ok := s.pages[url]
			if !ok {
				return nil, legalaudit.Errorf(legalaudit.ENOTFOUND, "HTTP 404 for %s", url)
			}
			return &legalaudit.Page{URL: url, Status: 200, HTML: html}, nil
		},
		CloseFn: func() error { return nil },
	}
}

// textExtractor treats the HTML as the text.
func textExtractor() *mock.TextExtractor {
	return &mock.TextExtractor{
		ExtractTextFn: func(html string) (*legalaudit.TextResult, error) {
			return &legalaudit.TextResult{Title: "Title", Text: html}, nil
		},
	}
}

// linksByMarker returns "<origin>/<tail>" when the HTML contains "href=<tail>".
func linksByMarker() *mock.LinkFinder {
	return &mock.LinkFinder{
		FindCandidateLinkFn: func(html, origin string, tails []string, _ legalaudit.LinkOptions) (string, error) {
			for _, t := range tails {
				if strings.Contains(html, "href=/"+t+" ") {
					return strings.TrimSuffix(origin, "/") + "/" + t, nil
				}
			}
			return "", nil
		},
	}
}

func templates() *mock.TemplateService {
	return &mock.TemplateService{
		LoadPackFn: func(_ context.Context, names []string) (*legalaudit.TemplatePack, error) {
			p := &legalaudit.TemplatePack{}
			for _, n := range names {
				p.Templates = append(p.Templates, &legalaudit.Template{
					TemplateInfo: legalaudit.TemplateInfo{Name: n},
					Text:         n,
				})
			}
			return p, nil
		},
	}
}

// matcher scores 90 for a template whose name appears in the text.
func matcher() *mock.Matcher {
	return &mock.Matcher{
		MatchFn: func(text string, pack *legalaudit.TemplatePack) *legalaudit.MatchResult {
			r := &legalaudit.MatchResult{ByTemplate: []float64{}, Labeled: []legalaudit.LabeledScore{}}
			for _, t := range pack.Templates {
				score := 0.0
				if strings.Contains(text, t.Name) {
					score = 90
				}
				r.ByTemplate = append(r.ByTemplate, score)
				r.Labeled = append(r.Labeled, legalaudit.LabeledScore{Name: t.Name, Score: score})
				r.Best = max(r.Best, score)
			}
			return r
		},
	}
}

func newAuditor(s *site) *audit.Auditor {
	return &audit.Auditor{
		Fetcher:     s.fetcher(),
		Extractor:   textExtractor(),
		Links:       linksByMarker(),
		Templates:   templates(),
		Matcher:     matcher(),
		RetryDelays: []time.Duration{},
	}
}

func TestAuditor_AuditSite(t *testing.T) {
	t.Parallel()

	t.Run("scores each kind against its template", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[string]string{
			"https://example.com":         "home href=/privacy  href=/terms ",
			"https://example.com/privacy": "our PP.pdf text",
			"https://example.com/terms":   "our TOS.pdf text",
		}}
		a := newAuditor(s)

		report, err := a.AuditSite(context.Background(), "https://example.com", nil, legalaudit.LinkOptions{})

		require.NoError(t, err)
		assert.Equal(t, "https://example.com", report.SiteURL)
		require.Len(t, report.Pages, 3)

		privacy := report.Pages[0]
		assert.Equal(t, legalaudit.PolicyPrivacy, privacy.Kind)
		assert.Equal(t, "https://example.com/privacy", privacy.Link)
		assert.Equal(t, "https://example.com/privacy", privacy.FinalURL)
		assert.Equal(t, 200, privacy.Status)
		assert.Equal(t, "PP.pdf", privacy.Template)
		assert.Equal(t, 90.0, privacy.Score)
		assert.Equal(t, "PP.pdf", privacy.BestLabel)
		assert.Len(t, privacy.Scores, 3)
		assert.Equal(t, len("our PP.pdf text"), privacy.Chars)
		assert.Empty(t, privacy.Error)

		terms := report.Pages[1]
		assert.Equal(t, "TOS.pdf", terms.BestLabel)
		assert.Equal(t, 90.0, terms.Score)

		cookies := report.Pages[2]
		assert.Equal(t, legalaudit.PolicyCookies, cookies.Kind)
		assert.Empty(t, cookies.Link)
		assert.Equal(t, "no candidate link found", cookies.Error)

		assert.Len(t, report.ContentHash, 16)
	})

	t.Run("content hash follows page text", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{
			"https://example.com":         "home href=/privacy ",
			"https://example.com/privacy": "v1",
		}
		kinds := []legalaudit.PolicyKind{legalaudit.PolicyPrivacy}

		first, err := newAuditor(&site{pages: pages}).AuditSite(context.Background(), "https://example.com", kinds, legalaudit.LinkOptions{})
		require.NoError(t, err)
		again, err := newAuditor(&site{pages: pages}).AuditSite(context.Background(), "https://example.com", kinds, legalaudit.LinkOptions{})
		require.NoError(t, err)

		pages["https://example.com/privacy"] = "v2"
		changed, err := newAuditor(&site{pages: pages}).AuditSite(context.Background(), "https://example.com", kinds, legalaudit.LinkOptions{})
		require.NoError(t, err)

		assert.Equal(t, first.ContentHash, again.ContentHash)
		assert.NotEqual(t, first.ContentHash, changed.ContentHash)
	})

	t.Run("records page failures without failing the audit", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[string]string{
			"https://example.com": "home href=/privacy ",
		}}
		a := newAuditor(s)

		report, err := a.AuditSite(context.Background(), "https://example.com", []legalaudit.PolicyKind{legalaudit.PolicyPrivacy}, legalaudit.LinkOptions{})

		require.NoError(t, err)
		assert.Equal(t, "HTTP 404 for https://example.com/privacy", report.Pages[0].Error)
		assert.Zero(t, report.Pages[0].Score)
	})

	t.Run("falls back to the sitemap", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[string]string{
			"https://example.com":                "home without links",
			"https://example.com/legal/privacy":  "PP.pdf",
			"https://example.com/legal/cookies":  "CS.pdf",
			"https://elsewhere.test/legal/terms": "TOS.pdf",
		}}
		var gotFilter *legalaudit.URLFilter
		calls := 0
		a := newAuditor(s)
		a.Sitemaps = &mock.SitemapService{
			DiscoverURLsFn: func(_ context.Context, baseURL string, filter *legalaudit.URLFilter) ([]string, error) {
				calls++
				gotFilter = filter
				assert.Equal(t, "https://example.com", baseURL)
				return []string{
					"https://example.com/legal/privacy",
					"https://elsewhere.test/legal/terms",
					"https://example.com/legal/cookies",
				}, nil
			},
		}

		report, err := a.AuditSite(context.Background(), "https://example.com", nil, legalaudit.LinkOptions{SameHostOnly: true})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.True(t, gotFilter.Match("https://example.com/privacy-policy"))
		assert.False(t, gotFilter.Match("https://example.com/blog"))
		assert.Equal(t, "https://example.com/legal/privacy", report.Pages[0].Link)
		assert.Empty(t, report.Pages[1].Link, "other hosts are skipped")
		assert.Equal(t, "https://example.com/legal/cookies", report.Pages[2].Link)
		assert.Equal(t, 90.0, report.Pages[2].Score)
	})

	t.Run("ignores sitemap failures", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[string]string{"https://example.com": "home"}}
		a := newAuditor(s)
		a.Sitemaps = &mock.SitemapService{
			DiscoverURLsFn: func(context.Context, string, *legalaudit.URLFilter) ([]string, error) {
				return nil, legalaudit.Errorf(legalaudit.EUPSTREAM, "broken")
			},
		}

		report, err := a.AuditSite(context.Background(), "https://example.com", []legalaudit.PolicyKind{legalaudit.PolicyTerms}, legalaudit.LinkOptions{})

		require.NoError(t, err)
		assert.Equal(t, "no candidate link found", report.Pages[0].Error)
	})

	t.Run("detects consent platform and saves the report", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[string]string{"https://example.com": "home onetrust"}}
		var saved *legalaudit.Report
		a := newAuditor(s)
		a.Consent = &mock.ConsentDetector{
			DetectFn: func(html string) legalaudit.ConsentPlatform {
				if strings.Contains(html, "onetrust") {
					return legalaudit.ConsentOneTrust
				}
				return legalaudit.ConsentUnknown
			},
		}
		a.Reports = &mock.ReportService{
			CreateReportFn: func(_ context.Context, r *legalaudit.Report) error {
				r.ID = "r-1"
				saved = r
				return nil
			},
		}

		report, err := a.AuditSite(context.Background(), "https://example.com", nil, legalaudit.LinkOptions{})

		require.NoError(t, err)
		assert.Equal(t, legalaudit.ConsentOneTrust, report.ConsentPlatform)
		assert.Equal(t, "r-1", report.ID)
		assert.Same(t, report, saved)
	})

	t.Run("waits on the rate limiter per host", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[string]string{
			"https://example.com":         "home href=/privacy ",
			"https://example.com/privacy": "PP.pdf",
		}}
		var mu sync.Mutex
		var hosts []string
		a := newAuditor(s)
		a.RateLimiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				mu.Lock()
				defer mu.Unlock()
				hosts = append(hosts, domain)
				return nil
			},
		}

		_, err := a.AuditSite(context.Background(), "https://example.com", []legalaudit.PolicyKind{legalaudit.PolicyPrivacy}, legalaudit.LinkOptions{})

		require.NoError(t, err)
		assert.Equal(t, []string{"example.com", "example.com"}, hosts)
	})

	t.Run("home page failure fails the audit", func(t *testing.T) {
		t.Parallel()

		a := newAuditor(&site{pages: map[string]string{}})

		_, err := a.AuditSite(context.Background(), "https://example.com", nil, legalaudit.LinkOptions{})

		require.Error(t, err)
		assert.Equal(t, legalaudit.ENOTFOUND, legalaudit.ErrorCode(err))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		a := newAuditor(&site{})

		_, err := a.AuditSite(context.Background(), "ftp://example.com", nil, legalaudit.LinkOptions{})
		assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err))

		_, err = a.AuditSite(context.Background(), "example.com", nil, legalaudit.LinkOptions{})
		assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err))

		_, err = a.AuditSite(context.Background(), "https://example.com", []legalaudit.PolicyKind{"refunds"}, legalaudit.LinkOptions{})
		assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err))
	})
}

func TestAuditor_FindLegalLinks(t *testing.T) {
	t.Parallel()

	s := &site{pages: map[string]string{"https://example.com": "home href=/terms "}}
	a := newAuditor(s)

	links, err := a.FindLegalLinks(context.Background(), "https://example.com", []legalaudit.PolicyKind{legalaudit.PolicyTerms, legalaudit.PolicyCookies}, legalaudit.LinkOptions{})

	require.NoError(t, err)
	require.Len(t, links, 2)
	require.NotNil(t, links[legalaudit.PolicyTerms])
	assert.Equal(t, "https://example.com/terms", *links[legalaudit.PolicyTerms])
	assert.Nil(t, links[legalaudit.PolicyCookies])
	assert.Equal(t, []string{"https://example.com"}, s.fetched)
}

func TestAuditor_FetchText(t *testing.T) {
	t.Parallel()

	s := &site{pages: map[string]string{"https://example.com/privacy": "Política de privacidad"}}

	t.Run("plain text", func(t *testing.T) {
		t.Parallel()

		res, err := newAuditor(s).FetchText(context.Background(), "https://example.com/privacy", "", 0)

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/privacy", res.URL)
		assert.Equal(t, 200, res.Status)
		assert.Equal(t, "Title", res.Title)
		assert.Equal(t, "Política de privacidad", res.Text)
		assert.Equal(t, 22, res.Chars)
	})

	t.Run("truncates to max chars", func(t *testing.T) {
		t.Parallel()

		res, err := newAuditor(s).FetchText(context.Background(), "https://example.com/privacy", "text", 7)

		require.NoError(t, err)
		assert.Equal(t, "Polític", res.Text)
		assert.Equal(t, 7, res.Chars)
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		a := newAuditor(s)
		a.Converter = &mock.Converter{
			ConvertFn: func(html, pageURL string) (string, error) {
				assert.Equal(t, "https://example.com/privacy", pageURL)
				return "# " + html, nil
			},
		}

		res, err := a.FetchText(context.Background(), "https://example.com/privacy", "markdown", 0)

		require.NoError(t, err)
		assert.Equal(t, "# Política de privacidad", res.Text)
	})

	t.Run("markdown needs a converter", func(t *testing.T) {
		t.Parallel()

		_, err := newAuditor(s).FetchText(context.Background(), "https://example.com/privacy", "markdown", 0)

		assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err))
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		_, err := newAuditor(s).FetchText(context.Background(), "https://example.com/privacy", "pdf", 0)

		assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err))
	})
}

func TestAuditor_MatchText(t *testing.T) {
	t.Parallel()

	var gotNames []string
	a := newAuditor(&site{})
	a.Templates = &mock.TemplateService{
		LoadPackFn: func(ctx context.Context, names []string) (*legalaudit.TemplatePack, error) {
			gotNames = names
			return templates().LoadPack(ctx, []string{"PP.pdf"})
		},
	}

	res, err := a.MatchText(context.Background(), "the PP.pdf text", []string{"PP.pdf"})

	require.NoError(t, err)
	assert.Equal(t, []string{"PP.pdf"}, gotNames)
	assert.Equal(t, 90.0, res.Best)
}

func TestParseKinds(t *testing.T) {
	t.Parallel()

	kinds, err := audit.ParseKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, legalaudit.DefaultPolicyKinds(), kinds)

	kinds, err = audit.ParseKinds([]string{" Terms", "terms", "cookies"})
	require.NoError(t, err)
	assert.Equal(t, []legalaudit.PolicyKind{legalaudit.PolicyTerms, legalaudit.PolicyCookies}, kinds)

	_, err = audit.ParseKinds([]string{"refunds"})
	assert.Equal(t, legalaudit.EINVALID, legalaudit.ErrorCode(err))
}
