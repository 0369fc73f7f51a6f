package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.TemplateService = (*LoggingTemplateService)(nil)

// LoggingTemplateService wraps a TemplateService with logging.
type LoggingTemplateService struct {
	next   legalaudit.TemplateService
	logger *slog.Logger
}

// NewLoggingTemplateService creates a new LoggingTemplateService.
func NewLoggingTemplateService(next legalaudit.TemplateService, logger *slog.Logger) *LoggingTemplateService {
	return &LoggingTemplateService{next: next, logger: logger}
}

// LoadPack delegates to the wrapped service and logs the loaded templates.
func (s *LoggingTemplateService) LoadPack(ctx context.Context, names []string) (pack *legalaudit.TemplatePack, err error) {
	defer func(begin time.Time) {
		attrs := []any{"requested", names}
		if pack != nil {
			chars := 0
			for _, t := range pack.Templates {
				chars += len(t.Text)
			}
			attrs = append(attrs, "templates", pack.Names(), "bytes", chars)
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		s.logger.Debug("load templates", attrs...)
	}(time.Now())
	return s.next.LoadPack(ctx, names)
}

// Info delegates to the wrapped service.
func (s *LoggingTemplateService) Info(ctx context.Context, names []string) ([]legalaudit.TemplateInfo, error) {
	return s.next.Info(ctx, names)
}
