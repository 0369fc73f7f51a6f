package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.TextCache = (*TextCache)(nil)

// TextCache persists extracted template text keyed by file version, so
// that PDFs are parsed once per modification rather than once per process.
type TextCache struct {
	db *DB
}

// NewTextCache creates a new TextCache.
func NewTextCache(db *DB) *TextCache {
	return &TextCache{db: db}
}

// GetText returns the cached text when the stored version matches key.
func (c *TextCache) GetText(ctx context.Context, key legalaudit.CacheKey) (string, bool, error) {
	var text, hash string
	err := c.db.QueryRowContext(ctx, `
		SELECT text, text_hash FROM template_texts
		WHERE path = ? AND mod_time = ? AND size = ?
	`, key.Path, key.ModTime.UnixNano(), key.Size).Scan(&text, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	// A row that no longer matches its hash is treated as a miss.
	if hashContent(text) != hash {
		return "", false, nil
	}
	return text, true, nil
}

// PutText stores text for key, replacing any older version of the path.
func (c *TextCache) PutText(ctx context.Context, key legalaudit.CacheKey, text string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO template_texts (path, mod_time, size, text, text_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mod_time = excluded.mod_time,
			size = excluded.size,
			text = excluded.text,
			text_hash = excluded.text_hash,
			updated_at = excluded.updated_at
	`, key.Path, key.ModTime.UnixNano(), key.Size, text, hashContent(text), formatTime(time.Now()))
	return err
}
