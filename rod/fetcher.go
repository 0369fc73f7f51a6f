// Package rod fetches pages with a headless Chrome browser so that sites
// rendering their legal text with JavaScript can be audited.
package rod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/legalaudit"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds a single page load.
const DefaultFetchTimeout = 30 * time.Second

var _ legalaudit.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager   *BrowserManager
	timeout   time.Duration
	maxBytes  int
	userAgent string
	maxPages  int64

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout bounds each page load. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBytes rejects rendered documents larger than n bytes.
func WithMaxBytes(n int) Option {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// WithUserAgent overrides the browser's User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithRecycleAfter restarts the browser after n pages.
func WithRecycleAfter(n int64) Option {
	return func(f *Fetcher) {
		f.maxPages = n
	}
}

// NewFetcher launches a headless browser. Close must be called when the
// Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		maxBytes: legalaudit.DefaultMaxHTMLSizeBytes,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(WithMaxPages(f.maxPages))
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates to url, waits for the load event and returns the
// rendered document.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*legalaudit.Page, error) {
	if f.closed.Load() {
		return nil, legalaudit.Errorf(legalaudit.ECLOSED, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, timeoutError(url, err)
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()
	defer f.manager.IncrementPageCount()

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	page = page.Context(ctx)

	if f.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}

	// The last document response wins so that redirects report the final
	// status.
	var status atomic.Int32
	go page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status.Store(int32(e.Response.Status))
		}
		return false
	})()

	if err := page.Navigate(url); err != nil {
		return nil, classify(ctx, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, classify(ctx, url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, classify(ctx, url, err)
	}
	if f.maxBytes > 0 && len(html) > f.maxBytes {
		return nil, legalaudit.Errorf(legalaudit.ETOOLARGE, "rendered page %s exceeds %d bytes", url, f.maxBytes)
	}

	final := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		final = info.URL
	}

	code := int(status.Load())
	if code >= 400 {
		return nil, legalaudit.Errorf(legalaudit.EUPSTREAM, "HTTP %d for %s", code, url)
	}

	return &legalaudit.Page{
		URL:     final,
		Status:  code,
		Headers: map[string]string{},
		HTML:    html,
	}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (f *Fetcher) Close() error {
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		f.closeErr = f.manager.Close()
	})
	return f.closeErr
}

// LauncherPID returns the browser launcher's process ID.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

func classify(ctx context.Context, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return timeoutError(url, ctxErr)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutError(url, err)
	}
	return fmt.Errorf("rendering %s: %w", url, err)
}

func timeoutError(url string, err error) error {
	return legalaudit.Errorf(legalaudit.ETIMEOUT, "rendering %s: %v", url, err)
}
