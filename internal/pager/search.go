package pager

import (
	"context"
	"strings"
	"sync"
)

// Search is the paginated free-text search list. Asking for a different
// query than the last one starts over at page one.
type Search struct {
	mu    sync.Mutex
	src   Source
	query string
	cur   cursor
}

func NewSearch(src Source, pageSize int) *Search {
	return &Search{src: src, cur: newCursor(pageSize)}
}

// Query returns the query the current results belong to.
func (s *Search) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *Search) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.snapshot()
}

// Next loads the next page of results for query.
func (s *Search) Next(ctx context.Context, query string) (Snapshot, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Snapshot{}, ErrEmptyQuery
	}

	s.mu.Lock()
	if query != s.query {
		s.query = query
		s.cur.reset()
		s.cur.loading = false
	}
	if s.cur.loading {
		s.mu.Unlock()
		return Snapshot{}, ErrBusy
	}
	if s.cur.lastPage() {
		snap := s.cur.snapshot()
		s.mu.Unlock()
		return snap, ErrLastPage
	}
	s.cur.loading = true
	gen, page := s.cur.gen, s.cur.next
	s.mu.Unlock()

	p, err := s.src.Search(ctx, query, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.cur.gen {
		return s.cur.snapshot(), ErrSuperseded
	}
	s.cur.loading = false
	if err != nil {
		return s.cur.snapshot(), err
	}
	s.cur.accept(p)
	return s.cur.snapshot(), nil
}
