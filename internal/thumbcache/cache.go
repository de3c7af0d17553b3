// Package thumbcache stores downscaled page bitmaps in a small sqlite
// database so the thumbnail rail can redraw without refetching pages.
package thumbcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	applog "github.com/csheth/folio/internal/log"
)

// ErrMiss is returned by Get when no row matches.
var ErrMiss = errors.New("thumbcache: miss")

// fixed width so timestamps order lexically
const accessLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Cache is an LRU-bounded table of PNG thumbnails keyed by (url, width).
type Cache struct {
	db       *sql.DB
	maxBytes int64
}

// Open creates or opens the database at path. maxBytes <= 0 disables
// eviction.
func Open(path string, maxBytes int64) (*Cache, error) {
	l := applog.WithOperation(applog.WithComponent("thumbcache"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("thumbcache: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	return &Cache{db: db, maxBytes: maxBytes}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS thumbs (
			id          INTEGER PRIMARY KEY,
			url         TEXT    NOT NULL,
			width       INTEGER NOT NULL,
			png         BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_variant ON thumbs(url, width)`,
		`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure thumbs schema: %w", err)
		}
	}
	return nil
}

// Close releases the database.
func (c *Cache) Close() error { return c.db.Close() }

// Get returns the PNG bytes for (url, width) and marks the row used.
func (c *Cache) Get(ctx context.Context, url string, width int) ([]byte, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT png FROM thumbs WHERE url=? AND width=?`, url, width).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	now := time.Now().UTC().Format(accessLayout)
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE url=? AND width=?`, now, url, width)
	return blob, nil
}

// Put upserts a thumbnail and evicts least recently used rows over the cap.
func (c *Cache) Put(ctx context.Context, url string, width int, png []byte) error {
	now := time.Now().UTC().Format(accessLayout)
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(url,width,png,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(url,width) DO UPDATE SET png=excluded.png, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		url, width, png, len(png), now, now)
	if err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if c.maxBytes > 0 {
		return c.evictToFit(ctx)
	}
	return nil
}

// TotalBytes sums the stored thumbnail sizes.
func (c *Cache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *Cache) evictToFit(ctx context.Context) error {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return fmt.Errorf("sum thumbs size: %w", err)
	}
	if total <= c.maxBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for cur > c.maxBytes && rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the single connection must be free before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbs WHERE id IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	applog.WithComponent("thumbcache").Debug("evicted thumbnails", slog.Int("rows", len(victims)), slog.Int64("bytes", total-cur))
	return nil
}
