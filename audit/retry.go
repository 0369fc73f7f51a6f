package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/legalaudit"
)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchFunc is the signature of a single fetch attempt.
type FetchFunc func(ctx context.Context, url string) (*legalaudit.Page, error)

// FetchWithRetry calls fetch until it succeeds, returns a permanent error,
// or runs out of delays. There is one attempt more than there are delays.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, logger *slog.Logger, delays []time.Duration) (*legalaudit.Page, error) {
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		page, err := fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if attempt == len(delays) || !Retryable(err) {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if logger != nil {
			logger.Warn("retrying fetch", "url", url, "attempt", attempt+2, "err", err)
		}

		timer := time.NewTimer(delays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// Retryable reports whether another attempt could succeed. Invalid input,
// oversized bodies, missing resources and closed sessions are final.
func Retryable(err error) bool {
	switch legalaudit.ErrorCode(err) {
	case legalaudit.EINVALID, legalaudit.ETOOLARGE, legalaudit.ENOTFOUND, legalaudit.ECLOSED:
		return false
	}
	return true
}
