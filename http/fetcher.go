// Package http fetches pages and sitemaps over plain HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/legalaudit"
)

// DefaultFetchTimeout bounds a single page fetch.
const DefaultFetchTimeout = 12 * time.Second

// DefaultMaxBytes caps the size of a fetched page body.
const DefaultMaxBytes = 2_000_000

// DefaultAccept is sent when no Accept header is configured.
const DefaultAccept = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"

var _ legalaudit.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML over HTTP. It does not execute JavaScript; use
// rod.Fetcher for client-rendered sites.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxBytes  int64
	userAgent string
	accept    string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-fetch timeout.
// Defaults to DefaultFetchTimeout (12s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBytes caps the response body size. Larger bodies fail with
// ETOOLARGE.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithAccept overrides the Accept header.
func WithAccept(accept string) Option {
	return func(f *Fetcher) {
		f.accept = accept
	}
}

// WithClient sets the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		maxBytes: DefaultMaxBytes,
		accept:   DefaultAccept,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	return f
}

// Fetch GETs url following redirects and returns the final page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*legalaudit.Page, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "invalid url %q: %v", url, err)
	}
	req.Header.Set("Accept", f.accept)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, legalaudit.Errorf(legalaudit.EUPSTREAM, "HTTP %d for %s", resp.StatusCode, url)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, tooLarge(url, f.maxBytes)
	}

	var r io.Reader = resp.Body
	if f.maxBytes > 0 {
		r = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, classify(ctx, url, err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, tooLarge(url, f.maxBytes)
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}

	return &legalaudit.Page{
		URL:     resp.Request.URL.String(),
		Status:  resp.StatusCode,
		Headers: headers,
		HTML:    strings.ToValidUTF8(string(body), "\uFFFD"),
	}, nil
}

// Close is a no-op; http.Client needs no cleanup.
func (f *Fetcher) Close() error {
	return nil
}

func tooLarge(url string, max int64) error {
	return legalaudit.Errorf(legalaudit.ETOOLARGE, "response from %s exceeds %d bytes", url, max)
}

// classify maps transport failures onto application error codes.
func classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return legalaudit.Errorf(legalaudit.ETIMEOUT, "fetching %s: %v", url, ctx.Err())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return legalaudit.Errorf(legalaudit.ETIMEOUT, "fetching %s: %v", url, err)
	}
	return fmt.Errorf("fetching %s: %w", url, err)
}
