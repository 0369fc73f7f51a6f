// Package match loads reference templates and scores page text against them.
package match

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/legalaudit"
	"golang.org/x/sync/errgroup"
)

var _ legalaudit.TemplateService = (*TemplateService)(nil)

// TemplateService resolves template names inside a directory.
type TemplateService struct {
	dir    string
	reader legalaudit.PDFReader
}

// NewTemplateService creates a TemplateService reading PDFs from dir.
func NewTemplateService(dir string, reader legalaudit.PDFReader) *TemplateService {
	return &TemplateService{dir: dir, reader: reader}
}

// Dir returns the template directory.
func (s *TemplateService) Dir() string {
	return s.dir
}

// LoadPack reads the named templates concurrently, keeping the requested
// order.
func (s *TemplateService) LoadPack(ctx context.Context, names []string) (*legalaudit.TemplatePack, error) {
	infos, err := s.Info(ctx, names)
	if err != nil {
		return nil, err
	}

	templates := make([]*legalaudit.Template, len(infos))
	g, ctx := errgroup.WithContext(ctx)
	for i, info := range infos {
		g.Go(func() error {
			text, err := s.reader.ReadText(ctx, info.Path)
			if err != nil {
				return err
			}
			templates[i] = &legalaudit.Template{TemplateInfo: info, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &legalaudit.TemplatePack{Templates: templates}, nil
}

// Info returns path and size for the named templates.
func (s *TemplateService) Info(ctx context.Context, names []string) ([]legalaudit.TemplateInfo, error) {
	if len(names) == 0 {
		names = legalaudit.DefaultTemplateNames()
	}

	infos := make([]legalaudit.TemplateInfo, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := s.resolve(name)
		if err != nil {
			return nil, err
		}
		st, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, legalaudit.Errorf(legalaudit.ENOTFOUND, "template %q not found in %s", name, s.dir)
		} else if err != nil {
			return nil, err
		}
		if !st.Mode().IsRegular() {
			return nil, legalaudit.Errorf(legalaudit.EINVALID, "template %q is not a file", name)
		}
		infos = append(infos, legalaudit.TemplateInfo{Name: name, Path: path, Size: st.Size()})
	}
	return infos, nil
}

// resolve maps a template name to a path inside the template directory.
// Names must be plain file names.
func (s *TemplateService) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", legalaudit.Errorf(legalaudit.EINVALID, "invalid template name %q", name)
	}
	abs, err := filepath.Abs(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	return abs, nil
}
