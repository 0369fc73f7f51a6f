// Package slog decorates domain services with structured logging.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs each discovery with the number of filter
// patterns and matching URLs. Failures log at warn level.
type LoggingSitemapService struct {
	next   legalaudit.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next legalaudit.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *legalaudit.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		patterns := 0
		if filter != nil {
			patterns = len(filter.Include)
		}
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "sitemap discovery",
			"site", baseURL,
			"patterns", patterns,
			"matched", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL, filter)
}
