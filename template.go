package legalaudit

import (
	"context"
	"time"
)

// DefaultTemplateNames lists the reference templates shipped with the tool.
func DefaultTemplateNames() []string {
	return []string{"PP.pdf", "TOS.pdf", "CS.pdf"}
}

// TemplateInfo describes a reference template on disk.
type TemplateInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Template is a reference template with its extracted text.
type Template struct {
	TemplateInfo
	Text string `json:"-"`
}

// TemplatePack is an ordered set of loaded templates.
type TemplatePack struct {
	Templates []*Template
}

// Names returns template names in pack order.
func (p *TemplatePack) Names() []string {
	names := make([]string, len(p.Templates))
	for i, t := range p.Templates {
		names[i] = t.Name
	}
	return names
}

// Texts returns template texts in pack order.
func (p *TemplatePack) Texts() []string {
	texts := make([]string, len(p.Templates))
	for i, t := range p.Templates {
		texts[i] = t.Text
	}
	return texts
}

// TemplateService loads reference templates.
type TemplateService interface {
	// LoadPack reads the named templates. An empty names list loads
	// DefaultTemplateNames. Returns ENOTFOUND for a missing template.
	LoadPack(ctx context.Context, names []string) (*TemplatePack, error)

	// Info returns path and size for the named templates without
	// extracting their text.
	Info(ctx context.Context, names []string) ([]TemplateInfo, error)
}

// PDFReader extracts normalized text from PDF files.
type PDFReader interface {
	ReadText(ctx context.Context, path string) (string, error)
}

// CacheKey identifies one version of a file.
type CacheKey struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// TextCache persists extracted text keyed by file version.
type TextCache interface {
	// GetText returns the cached text and true if key matches a stored entry.
	GetText(ctx context.Context, key CacheKey) (string, bool, error)

	// PutText stores text for key, replacing older versions of the same path.
	PutText(ctx context.Context, key CacheKey, text string) error
}

// LabeledScore pairs a template name with its score.
type LabeledScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// MatchResult holds similarity scores (0-100) of a text against a pack.
type MatchResult struct {
	Best       float64        `json:"best"`
	ByTemplate []float64      `json:"by_template"`
	Labeled    []LabeledScore `json:"labeled"`
}

// BestLabel returns the name of the highest-scoring template, or "" when
// every score is zero.
func (r *MatchResult) BestLabel() string {
	var name string
	var best float64
	for _, l := range r.Labeled {
		if l.Score > best {
			best, name = l.Score, l.Name
		}
	}
	return name
}

// Matcher scores text against reference templates.
type Matcher interface {
	Match(text string, pack *TemplatePack) *MatchResult
}
