// Package pdf extracts text from reference template PDFs.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/fwojciec/legalaudit"
	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/singleflight"
)

var _ legalaudit.PDFReader = (*Reader)(nil)

// ExtractFunc returns the raw text of the PDF at path.
type ExtractFunc func(path string) (string, error)

type entry struct {
	key  legalaudit.CacheKey
	text string
}

// Reader extracts normalized text from PDFs. Results are cached in memory
// and, when configured, in a persistent TextCache, both keyed by the file's
// modification time and size.
type Reader struct {
	cache   legalaudit.TextCache
	extract ExtractFunc
	logger  *slog.Logger

	mu     sync.Mutex
	memory map[string]entry
	group  singleflight.Group
}

// Option configures a Reader.
type Option func(*Reader)

// WithTextCache adds a persistent cache behind the in-memory one.
func WithTextCache(c legalaudit.TextCache) Option {
	return func(r *Reader) {
		r.cache = c
	}
}

// WithExtractFunc replaces the PDF text extractor.
func WithExtractFunc(fn ExtractFunc) Option {
	return func(r *Reader) {
		r.extract = fn
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = l
	}
}

// NewReader creates a new Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		extract: ExtractText,
		memory:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// ReadText returns the normalized text of the PDF at path. Concurrent
// reads of the same file share one extraction.
func (r *Reader) ReadText(ctx context.Context, path string) (string, error) {
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", legalaudit.Errorf(legalaudit.ENOTFOUND, "template file not found: %s", path)
	} else if err != nil {
		return "", err
	}
	if !st.Mode().IsRegular() {
		return "", legalaudit.Errorf(legalaudit.EINVALID, "not a file: %s", path)
	}
	key := legalaudit.CacheKey{Path: path, ModTime: st.ModTime(), Size: st.Size()}

	if text, ok := r.fromMemory(key); ok {
		return text, nil
	}

	v, err, _ := r.group.Do(fmt.Sprintf("%s|%d|%d", path, key.ModTime.UnixNano(), key.Size), func() (any, error) {
		return r.load(ctx, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Reader) fromMemory(key legalaudit.CacheKey) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.memory[key.Path]
	if !ok || !e.key.ModTime.Equal(key.ModTime) || e.key.Size != key.Size {
		return "", false
	}
	return e.text, true
}

func (r *Reader) remember(key legalaudit.CacheKey, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory[key.Path] = entry{key: key, text: text}
}

func (r *Reader) load(ctx context.Context, key legalaudit.CacheKey) (string, error) {
	if r.cache != nil {
		text, ok, err := r.cache.GetText(ctx, key)
		if err != nil {
			r.logger.Warn("template cache read failed", "path", key.Path, "err", err)
		} else if ok {
			r.remember(key, text)
			return text, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := r.extract(key.Path)
	if err != nil {
		return "", legalaudit.Errorf(legalaudit.EINVALID, "reading PDF %s: %v", key.Path, err)
	}
	text := legalaudit.NormalizeText(raw)

	r.remember(key, text)
	if r.cache != nil {
		if err := r.cache.PutText(ctx, key, text); err != nil {
			r.logger.Warn("template cache write failed", "path", key.Path, "err", err)
		}
	}
	return text, nil
}

// ExtractText reads the plain text of every page of the PDF at path.
func ExtractText(path string) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed PDF: %v", p)
		}
	}()

	f, doc, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
