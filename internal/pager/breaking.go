package pager

import (
	"context"
	"strings"
	"sync"
)

type Settings struct {
	Country  string
	Category string
	PageSize int
}

// Breaking is the paginated top-headlines list.
type Breaking struct {
	mu       sync.Mutex
	src      Source
	country  string
	category string
	dirty    bool
	cur      cursor
}

func NewBreaking(src Source, s Settings) *Breaking {
	return &Breaking{
		src:      src,
		country:  strings.ToLower(s.Country),
		category: strings.ToLower(s.Category),
		cur:      newCursor(s.PageSize),
	}
}

// SetCountry switches country. It reports whether anything changed; a change
// resets the list on the next load.
func (b *Breaking) SetCountry(code string) bool {
	code = strings.ToLower(code)
	b.mu.Lock()
	defer b.mu.Unlock()
	if code == b.country {
		return false
	}
	b.country = code
	b.dirty = true
	return true
}

func (b *Breaking) SetCategory(category string) bool {
	category = strings.ToLower(category)
	b.mu.Lock()
	defer b.mu.Unlock()
	if category == b.category {
		return false
	}
	b.category = category
	b.dirty = true
	return true
}

// Refresh discards the accumulated list; the next load starts at page one.
func (b *Breaking) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirty = true
}

func (b *Breaking) Country() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.country
}

func (b *Breaking) Category() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.category
}

// Dirty reports whether a reset is pending.
func (b *Breaking) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

func (b *Breaking) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur.snapshot()
}

// Next loads the next page and returns the accumulated list. A pending reset
// is applied first, which also invalidates any load still in flight.
func (b *Breaking) Next(ctx context.Context) (Snapshot, error) {
	b.mu.Lock()
	if b.dirty {
		b.cur.reset()
		b.cur.loading = false
		b.dirty = false
	}
	if b.cur.loading {
		b.mu.Unlock()
		return Snapshot{}, ErrBusy
	}
	if b.cur.lastPage() {
		snap := b.cur.snapshot()
		b.mu.Unlock()
		return snap, ErrLastPage
	}
	b.cur.loading = true
	gen, page := b.cur.gen, b.cur.next
	country, category := b.country, b.category
	b.mu.Unlock()

	p, err := b.src.TopHeadlines(ctx, country, category, page)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.cur.gen {
		return b.cur.snapshot(), ErrSuperseded
	}
	b.cur.loading = false
	if err != nil {
		return b.cur.snapshot(), err
	}
	b.cur.accept(p)
	return b.cur.snapshot(), nil
}
