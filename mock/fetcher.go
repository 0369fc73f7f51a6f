package mock

import (
	"context"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of legalaudit.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*legalaudit.Page, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*legalaudit.Page, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}
