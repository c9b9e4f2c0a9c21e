// Package pager keeps the pagination state of the breaking-news and search
// lists: which page comes next, what has been accumulated so far, and when a
// change of country, category or query throws that state away.
package pager

import (
	"context"
	"errors"

	"github.com/matheuskafuri/newsdesk/internal/cache"
)

var (
	// ErrBusy is returned when a page is already being loaded for the list.
	ErrBusy = errors.New("a page is already loading")
	// ErrSuperseded is returned for a load whose list was reset while the
	// request was in flight. Its result has been dropped.
	ErrSuperseded = errors.New("list was reset while loading")
	// ErrEmptyQuery is returned by Search.Next for a blank query.
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrLastPage is returned by Next once every page has been loaded.
	ErrLastPage = errors.New("no more pages")
)

// Source is anything that can serve pages of headlines and search results.
type Source interface {
	TopHeadlines(ctx context.Context, country, category string, page int) (*cache.Page, error)
	Search(ctx context.Context, query string, page int) (*cache.Page, error)
}

// Snapshot is a copy of a list's state safe to hand to a renderer.
type Snapshot struct {
	Articles     []cache.Article
	Page         int // pages loaded so far
	TotalResults int
	LastPage     bool
	Stale        bool
	Loading      bool
}

// cursor is the state shared by both lists. Callers hold the owning mutex.
type cursor struct {
	pageSize int
	next     int
	articles []cache.Article
	seen     map[string]bool
	total    int
	empty    bool // the last page came back with nothing new
	stale    bool
	loading  bool
	gen      uint64
}

func newCursor(pageSize int) cursor {
	if pageSize <= 0 {
		pageSize = 20
	}
	return cursor{pageSize: pageSize, next: 1, seen: make(map[string]bool)}
}

func (c *cursor) reset() {
	c.next = 1
	c.articles = nil
	c.seen = make(map[string]bool)
	c.total = 0
	c.empty = false
	c.stale = false
	c.gen++
}

// accept merges a fetched page. Articles already present are dropped; the
// API repeats items across pages when the feed shifts underneath it.
func (c *cursor) accept(p *cache.Page) {
	added := 0
	for _, a := range p.Articles {
		if c.seen[a.URL] {
			continue
		}
		c.seen[a.URL] = true
		c.articles = append(c.articles, a)
		added++
	}
	c.total = p.TotalResults
	c.empty = added == 0
	c.stale = p.Stale
	c.next++
}

func (c *cursor) lastPage() bool {
	loaded := c.next - 1
	if loaded == 0 {
		return false
	}
	if c.empty {
		return true
	}
	pages := (c.total + c.pageSize - 1) / c.pageSize
	return loaded >= pages
}

func (c *cursor) snapshot() Snapshot {
	return Snapshot{
		Articles:     append([]cache.Article(nil), c.articles...),
		Page:         c.next - 1,
		TotalResults: c.total,
		LastPage:     c.lastPage(),
		Stale:        c.stale,
		Loading:      c.loading,
	}
}
