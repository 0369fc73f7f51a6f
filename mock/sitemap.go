package mock

import (
	"context"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of legalaudit.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *legalaudit.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *legalaudit.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}
