package mock

import (
	"context"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.TemplateService = (*TemplateService)(nil)

// TemplateService is a mock implementation of legalaudit.TemplateService.
type TemplateService struct {
	LoadPackFn func(ctx context.Context, names []string) (*legalaudit.TemplatePack, error)
	InfoFn     func(ctx context.Context, names []string) ([]legalaudit.TemplateInfo, error)
}

func (s *TemplateService) LoadPack(ctx context.Context, names []string) (*legalaudit.TemplatePack, error) {
	return s.LoadPackFn(ctx, names)
}

func (s *TemplateService) Info(ctx context.Context, names []string) ([]legalaudit.TemplateInfo, error) {
	return s.InfoFn(ctx, names)
}

var _ legalaudit.PDFReader = (*PDFReader)(nil)

// PDFReader is a mock implementation of legalaudit.PDFReader.
type PDFReader struct {
	ReadTextFn func(ctx context.Context, path string) (string, error)
}

func (r *PDFReader) ReadText(ctx context.Context, path string) (string, error) {
	return r.ReadTextFn(ctx, path)
}

var _ legalaudit.TextCache = (*TextCache)(nil)

// TextCache is a mock implementation of legalaudit.TextCache.
type TextCache struct {
	GetTextFn func(ctx context.Context, key legalaudit.CacheKey) (string, bool, error)
	PutTextFn func(ctx context.Context, key legalaudit.CacheKey, text string) error
}

func (c *TextCache) GetText(ctx context.Context, key legalaudit.CacheKey) (string, bool, error) {
	return c.GetTextFn(ctx, key)
}

func (c *TextCache) PutText(ctx context.Context, key legalaudit.CacheKey, text string) error {
	return c.PutTextFn(ctx, key, text)
}

var _ legalaudit.Matcher = (*Matcher)(nil)

// Matcher is a mock implementation of legalaudit.Matcher.
type Matcher struct {
	MatchFn func(text string, pack *legalaudit.TemplatePack) *legalaudit.MatchResult
}

func (m *Matcher) Match(text string, pack *legalaudit.TemplatePack) *legalaudit.MatchResult {
	return m.MatchFn(text, pack)
}
