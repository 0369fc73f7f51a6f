// Package audit orchestrates site audits: it finds a site's legal pages,
// fetches them politely, flattens them to text and scores the text against
// reference templates.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/legalaudit"
	"golang.org/x/sync/errgroup"
)

// Text formats accepted by FetchText.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Auditor wires the collaborators an audit needs. Sitemaps, Consent,
// Converter, Reports, RateLimiter and Logger are optional.
type Auditor struct {
	Fetcher     legalaudit.Fetcher
	Extractor   legalaudit.TextExtractor
	Converter   legalaudit.Converter
	Links       legalaudit.LinkFinder
	Sitemaps    legalaudit.SitemapService
	Consent     legalaudit.ConsentDetector
	Templates   legalaudit.TemplateService
	Matcher     legalaudit.Matcher
	Reports     legalaudit.ReportService
	RateLimiter legalaudit.DomainLimiter
	RetryDelays []time.Duration
	Logger      *slog.Logger
}

// FetchTextResult is the outcome of FetchText.
type FetchTextResult struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text"`
	Chars  int    `json:"chars"`
}

// FetchText fetches rawURL and returns its text as plain text or Markdown,
// cut to maxChars runes when maxChars is positive.
func (a *Auditor) FetchText(ctx context.Context, rawURL, format string, maxChars int) (*FetchTextResult, error) {
	if _, err := ParseSiteURL(rawURL); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatMarkdown {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "unknown format %q", format)
	}
	if format == FormatMarkdown && a.Converter == nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "markdown output is not available")
	}

	page, err := a.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	extracted, err := a.Extractor.ExtractText(page.HTML)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", page.URL, err)
	}
	text := extracted.Text
	if format == FormatMarkdown {
		if text, err = a.Converter.Convert(page.HTML, page.URL); err != nil {
			return nil, fmt.Errorf("converting %s: %w", page.URL, err)
		}
	}
	text = legalaudit.TruncateRunes(text, maxChars)

	return &FetchTextResult{
		URL:    page.URL,
		Status: page.Status,
		Title:  extracted.Title,
		Text:   text,
		Chars:  utf8.RuneCountInString(text),
	}, nil
}

// LegalLinks maps each requested kind to its candidate URL, nil when the
// site has none.
type LegalLinks map[legalaudit.PolicyKind]*string

// FindLegalLinks looks for one candidate page per kind, first in the home
// page's anchors and then in the site's sitemap.
func (a *Auditor) FindLegalLinks(ctx context.Context, siteURL string, kinds []legalaudit.PolicyKind, opts legalaudit.LinkOptions) (LegalLinks, error) {
	kinds, err := normalizeKinds(kinds)
	if err != nil {
		return nil, err
	}
	site, err := ParseSiteURL(siteURL)
	if err != nil {
		return nil, err
	}

	home, err := a.fetch(ctx, site.String())
	if err != nil {
		return nil, fmt.Errorf("fetching home page: %w", err)
	}

	found, err := a.findLinks(ctx, home, kinds, opts)
	if err != nil {
		return nil, err
	}

	links := make(LegalLinks, len(kinds))
	for _, k := range kinds {
		links[k] = nil
		if u := found[k]; u != "" {
			links[k] = &u
		}
	}
	return links, nil
}

// MatchText scores text against the named templates. No names selects the
// default pack.
func (a *Auditor) MatchText(ctx context.Context, text string, templates []string) (*legalaudit.MatchResult, error) {
	pack, err := a.Templates.LoadPack(ctx, templates)
	if err != nil {
		return nil, err
	}
	return a.Matcher.Match(legalaudit.NormalizeText(text), pack), nil
}

// AuditSite finds, fetches and scores the legal pages of a site, one per
// kind, and stores the report when a ReportService is configured. Failures
// on a single page are recorded in its PageReport and do not fail the
// audit; failing to fetch the home page or load templates does.
func (a *Auditor) AuditSite(ctx context.Context, siteURL string, kinds []legalaudit.PolicyKind, opts legalaudit.LinkOptions) (*legalaudit.Report, error) {
	kinds, err := normalizeKinds(kinds)
	if err != nil {
		return nil, err
	}
	site, err := ParseSiteURL(siteURL)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Template()
	}
	pack, err := a.Templates.LoadPack(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	home, err := a.fetch(ctx, site.String())
	if err != nil {
		return nil, fmt.Errorf("fetching home page: %w", err)
	}

	report := &legalaudit.Report{
		SiteURL: site.String(),
		Pages:   make([]*legalaudit.PageReport, len(kinds)),
	}
	if a.Consent != nil {
		report.ConsentPlatform = a.Consent.Detect(home.HTML)
	}

	links, err := a.findLinks(ctx, home, kinds, opts)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			report.Pages[i], texts[i] = a.auditPage(gctx, kind, links[kind], pack)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.ContentHash = contentHash(kinds, texts)

	if a.Reports != nil {
		if err := a.Reports.CreateReport(ctx, report); err != nil {
			return nil, fmt.Errorf("saving report: %w", err)
		}
	}
	return report, nil
}

// auditPage fetches and scores one candidate page. It returns the page
// report and the extracted text.
func (a *Auditor) auditPage(ctx context.Context, kind legalaudit.PolicyKind, link string, pack *legalaudit.TemplatePack) (*legalaudit.PageReport, string) {
	pr := &legalaudit.PageReport{Kind: kind, Link: link, Template: kind.Template()}
	if link == "" {
		pr.Error = "no candidate link found"
		return pr, ""
	}

	page, err := a.fetch(ctx, link)
	if err != nil {
		pr.Error = legalaudit.ErrorMessage(err)
		if legalaudit.ErrorCode(err) == legalaudit.EINTERNAL {
			pr.Error = err.Error()
		}
		return pr, ""
	}
	pr.FinalURL = page.URL
	pr.Status = page.Status

	extracted, err := a.Extractor.ExtractText(page.HTML)
	if err != nil {
		pr.Error = fmt.Sprintf("extracting text: %v", err)
		return pr, ""
	}
	pr.Chars = utf8.RuneCountInString(extracted.Text)

	result := a.Matcher.Match(extracted.Text, pack)
	pr.Scores = result.Labeled
	pr.BestLabel = result.BestLabel()
	for _, l := range result.Labeled {
		if l.Name == pr.Template {
			pr.Score = l.Score
		}
	}
	return pr, extracted.Text
}

// findLinks returns a candidate URL per kind. Kinds without an anchor on
// the home page are looked up in the sitemap with one discovery pass.
func (a *Auditor) findLinks(ctx context.Context, home *legalaudit.Page, kinds []legalaudit.PolicyKind, opts legalaudit.LinkOptions) (map[legalaudit.PolicyKind]string, error) {
	origin := pageOrigin(home.URL)
	links := make(map[legalaudit.PolicyKind]string, len(kinds))

	var missing []legalaudit.PolicyKind
	var tails []string
	for _, k := range kinds {
		link, err := a.Links.FindCandidateLink(home.HTML, home.URL, k.Tails(), opts)
		if err != nil {
			return nil, fmt.Errorf("finding %s link: %w", k, err)
		}
		if link != "" {
			links[k] = link
			continue
		}
		missing = append(missing, k)
		tails = append(tails, k.Tails()...)
	}
	if len(missing) == 0 || a.Sitemaps == nil {
		return links, nil
	}

	urls, err := a.Sitemaps.DiscoverURLs(ctx, origin, legalaudit.NewTailFilter(tails))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger().Warn("sitemap discovery failed", "site", origin, "err", err)
		return links, nil
	}
	for _, k := range missing {
		for _, u := range urls {
			if opts.SameHostOnly && !sameHost(u, origin) {
				continue
			}
			if legalaudit.MatchesTails(u, k.Tails()) {
				links[k] = u
				break
			}
		}
	}
	return links, nil
}

// fetch waits for the host's rate limit and fetches with retry.
func (a *Auditor) fetch(ctx context.Context, rawURL string) (*legalaudit.Page, error) {
	delays := a.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	return FetchWithRetry(ctx, rawURL, func(ctx context.Context, u string) (*legalaudit.Page, error) {
		if a.RateLimiter != nil {
			if err := a.RateLimiter.Wait(ctx, hostOf(u)); err != nil {
				return nil, err
			}
		}
		return a.Fetcher.Fetch(ctx, u)
	}, a.logger(), delays)
}

func (a *Auditor) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

// ParseSiteURL validates an absolute http(s) URL.
func ParseSiteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "invalid site URL %q: must be an absolute http(s) URL", raw)
	}
	return u, nil
}

// ParseKinds converts kind names, rejecting unknown ones. No names selects
// the default kinds.
func ParseKinds(names []string) ([]legalaudit.PolicyKind, error) {
	kinds := make([]legalaudit.PolicyKind, len(names))
	for i, n := range names {
		kinds[i] = legalaudit.PolicyKind(strings.ToLower(strings.TrimSpace(n)))
	}
	return normalizeKinds(kinds)
}

func normalizeKinds(kinds []legalaudit.PolicyKind) ([]legalaudit.PolicyKind, error) {
	if len(kinds) == 0 {
		return legalaudit.DefaultPolicyKinds(), nil
	}
	seen := make(map[legalaudit.PolicyKind]bool, len(kinds))
	out := make([]legalaudit.PolicyKind, 0, len(kinds))
	for _, k := range kinds {
		if err := k.Validate(); err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

// contentHash fingerprints the audited texts in kind order.
func contentHash(kinds []legalaudit.PolicyKind, texts []string) string {
	d := xxhash.New()
	for i, k := range kinds {
		_, _ = d.WriteString(string(k))
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(texts[i])
		_, _ = d.WriteString("\x00")
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func pageOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}

func sameHost(a, b string) bool {
	return strings.EqualFold(hostOf(a), hostOf(b))
}
