package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound = errors.New("article not found")
	ErrNoURL    = errors.New("article has no url")
	ErrMiss     = errors.New("response not cached")
)

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	c := &Cache{writeDB: writeDB}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}

	// The read handle is opened after the schema exists; mode=ro cannot create it.
	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	c.readDB = readDB
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS saved_articles (
			url         TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL DEFAULT '',
			author      TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL DEFAULT '',
			published   DATETIME NOT NULL,
			saved_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_saved_saved_at ON saved_articles(saved_at DESC);

		CREATE TABLE IF NOT EXISTS responses (
			key       TEXT PRIMARY KEY,
			body      BLOB NOT NULL,
			stored_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// SaveArticle inserts the article, replacing any saved row with the same URL.
func (c *Cache) SaveArticle(a Article) error {
	if a.URL == "" {
		return ErrNoURL
	}
	if a.SavedAt.IsZero() {
		a.SavedAt = time.Now()
	}
	_, err := c.writeDB.Exec(`
		INSERT OR REPLACE INTO saved_articles
			(url, title, description, image_url, source, author, content, published, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.URL, a.Title, a.Description, a.ImageURL, a.Source, a.Author, a.Content, a.Published, a.SavedAt)
	if err != nil {
		return fmt.Errorf("saving article %s: %w", a.URL, err)
	}
	return nil
}

// DeleteArticle removes a saved article and returns what was stored so the
// caller can offer an undo.
func (c *Cache) DeleteArticle(url string) (Article, error) {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return Article{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT url, title, description, image_url, source, author, content, published, saved_at
		FROM saved_articles WHERE url = ?
	`, url)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, fmt.Errorf("reading article %s: %w", url, err)
	}

	if _, err := tx.Exec("DELETE FROM saved_articles WHERE url = ?", url); err != nil {
		return Article{}, fmt.Errorf("deleting article %s: %w", url, err)
	}
	return a, tx.Commit()
}

func (c *Cache) SavedArticles(opts QueryOpts) ([]Article, error) {
	var (
		where []string
		args  []interface{}
	)

	if opts.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term)
	}
	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source)
	}

	query := "SELECT url, title, description, image_url, source, author, content, published, saved_at FROM saved_articles"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY saved_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying saved articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (c *Cache) IsSaved(url string) (bool, error) {
	var n int
	err := c.readDB.QueryRow("SELECT COUNT(*) FROM saved_articles WHERE url = ?", url).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(s scanner) (Article, error) {
	var a Article
	err := s.Scan(&a.URL, &a.Title, &a.Description, &a.ImageURL, &a.Source, &a.Author, &a.Content, &a.Published, &a.SavedAt)
	return a, err
}

// GetResponse returns a cached response body and when it was stored.
func (c *Cache) GetResponse(ctx context.Context, key string) ([]byte, time.Time, error) {
	var (
		body     []byte
		storedAt time.Time
	)
	err := c.readDB.QueryRowContext(ctx, "SELECT body, stored_at FROM responses WHERE key = ?", key).Scan(&body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cached response: %w", err)
	}
	return body, storedAt, nil
}

func (c *Cache) PutResponse(ctx context.Context, key string, body []byte) error {
	_, err := c.writeDB.ExecContext(ctx, `
		INSERT INTO responses (key, body, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, stored_at = excluded.stored_at
	`, key, body, time.Now())
	if err != nil {
		return fmt.Errorf("caching response: %w", err)
	}
	return nil
}

// Prune drops cached responses older than maxAge. Saved articles are kept.
func (c *Cache) Prune(maxAge time.Duration) (int64, error) {
	res, err := c.writeDB.Exec("DELETE FROM responses WHERE stored_at < ?", time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("pruning responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if _, err := c.writeDB.Exec("VACUUM"); err != nil {
			return n, fmt.Errorf("vacuum: %w", err)
		}
	}
	return n, nil
}

func (c *Cache) Stats(dbPath string) (Stats, error) {
	var s Stats
	if err := c.readDB.QueryRow("SELECT COUNT(*) FROM saved_articles").Scan(&s.Saved); err != nil {
		return s, err
	}
	if err := c.readDB.QueryRow("SELECT COUNT(*) FROM responses").Scan(&s.Responses); err != nil {
		return s, err
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return s, err
	}
	s.Size = info.Size()
	return s, nil
}

// Preference returns a stored setting, or "" when unset.
func (c *Cache) Preference(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (c *Cache) SetPreference(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
