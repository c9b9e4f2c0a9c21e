package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/matheuskafuri/newsdesk/internal/newsapi"
)

type fakeSource struct {
	mu       sync.Mutex
	total    int
	err      error
	searches []string
	heads    []string
}

func (f *fakeSource) page(key string, page int) (*cache.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := &cache.Page{TotalResults: f.total}
	for i := (page - 1) * 20; i < page*20 && i < f.total; i++ {
		p.Articles = append(p.Articles, cache.Article{
			URL:   fmt.Sprintf("https://%s.test/%d", key, i),
			Title: fmt.Sprintf("%s %d", key, i),
		})
	}
	return p, nil
}

func (f *fakeSource) TopHeadlines(_ context.Context, country, category string, page int) (*cache.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads = append(f.heads, fmt.Sprintf("%s/%s/%d", country, category, page))
	return f.page(country+"-"+category, page)
}

func (f *fakeSource) Search(_ context.Context, query string, page int) (*cache.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, fmt.Sprintf("%s/%d", query, page))
	return f.page(query, page)
}

type memStore struct {
	articles []cache.Article
	prefs    map[string]string
}

func newMemStore() *memStore {
	return &memStore{prefs: make(map[string]string)}
}

func (m *memStore) SaveArticle(a cache.Article) error {
	if a.URL == "" {
		return cache.ErrNoURL
	}
	for i := range m.articles {
		if m.articles[i].URL == a.URL {
			m.articles[i] = a
			return nil
		}
	}
	m.articles = append(m.articles, a)
	return nil
}

func (m *memStore) DeleteArticle(url string) (cache.Article, error) {
	for i, a := range m.articles {
		if a.URL == url {
			m.articles = append(m.articles[:i], m.articles[i+1:]...)
			return a, nil
		}
	}
	return cache.Article{}, cache.ErrNotFound
}

func (m *memStore) SavedArticles(cache.QueryOpts) ([]cache.Article, error) {
	return append([]cache.Article(nil), m.articles...), nil
}

func (m *memStore) Preference(key string) (string, error) { return m.prefs[key], nil }

func (m *memStore) SetPreference(key, value string) error {
	m.prefs[key] = value
	return nil
}

func newTestApp(src *fakeSource, store *memStore) *App {
	cfg := &config.Config{Country: "us", Category: "general", PageSize: 20, SearchDelay: "10ms"}
	return NewApp(RunOpts{
		Cfg:    cfg,
		Store:  store,
		Source: src,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// run executes cmd, expanding batches, and feeds every resulting message
// except timers back into the app.
func run(a *App, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			run(a, c)
		}
		return
	}
	switch msg.(type) {
	case pageMsg, savedLoadedMsg, savedMsg, deletedMsg, noticeMsg, errMsg:
		_, next := a.Update(msg)
		run(a, next)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(a *App, keys ...string) {
	for _, k := range keys {
		_, cmd := a.Update(key(k))
		run(a, cmd)
	}
}

func TestInitLoadsFirstPage(t *testing.T) {
	src := &fakeSource{total: 30}
	a := newTestApp(src, newMemStore())
	run(a, a.loadBreaking())

	l := a.lists[tabBreaking]
	if len(l.articles) != 20 || l.loading || l.lastPage {
		t.Fatalf("after first page: %d articles, loading=%v last=%v", len(l.articles), l.loading, l.lastPage)
	}
	if src.heads[0] != "us/general/1" {
		t.Errorf("first request = %s", src.heads[0])
	}
}

func TestCursorAtEndLoadsNextPage(t *testing.T) {
	src := &fakeSource{total: 30}
	a := newTestApp(src, newMemStore())
	run(a, a.loadBreaking())

	a.lists[tabBreaking].cursor = 18
	press(a, "j")
	if len(src.heads) != 2 || src.heads[1] != "us/general/2" {
		t.Fatalf("requests = %v", src.heads)
	}
	l := a.lists[tabBreaking]
	if len(l.articles) != 30 || !l.lastPage {
		t.Errorf("got %d articles, last=%v", len(l.articles), l.lastPage)
	}

	// On the last page nothing more is requested.
	a.lists[tabBreaking].cursor = 28
	press(a, "j")
	if len(src.heads) != 2 {
		t.Errorf("unexpected request after last page: %v", src.heads)
	}
}

func TestErrorStopsPagination(t *testing.T) {
	src := &fakeSource{total: 60}
	a := newTestApp(src, newMemStore())
	run(a, a.loadBreaking())

	src.err = fmt.Errorf("get: %w", newsapi.ErrNetwork)
	a.lists[tabBreaking].cursor = 18
	press(a, "j")
	l := a.lists[tabBreaking]
	if !errors.Is(l.err, newsapi.ErrNetwork) || len(l.articles) != 20 {
		t.Fatalf("err=%v articles=%d", l.err, len(l.articles))
	}

	calls := len(src.heads)
	press(a, "k", "j")
	if len(src.heads) != calls {
		t.Error("errored list should not auto-load")
	}

	src.err = nil
	press(a, "r")
	l = a.lists[tabBreaking]
	if l.err != nil || len(l.articles) != 20 || src.heads[len(src.heads)-1] != "us/general/1" {
		t.Errorf("refresh should restart at page one: err=%v articles=%d heads=%v", l.err, len(l.articles), src.heads)
	}
}

func TestCategoryKeysResetList(t *testing.T) {
	src := &fakeSource{total: 30}
	store := newMemStore()
	a := newTestApp(src, store)
	run(a, a.loadBreaking())

	press(a, "right")
	if a.breaking.Category() != "health" {
		t.Fatalf("category = %s", a.breaking.Category())
	}
	if got := src.heads[len(src.heads)-1]; got != "us/health/1" {
		t.Errorf("last request = %s", got)
	}
	if store.prefs[prefCategory] != "health" {
		t.Errorf("category not persisted: %v", store.prefs)
	}

	press(a, "1")
	if a.breaking.Category() != "business" {
		t.Errorf("category = %s", a.breaking.Category())
	}
	if a.lists[tabBreaking].articles[0].URL != "https://us-business.test/0" {
		t.Errorf("list not replaced: %s", a.lists[tabBreaking].articles[0].URL)
	}

	calls := len(src.heads)
	press(a, "1")
	if len(src.heads) != calls {
		t.Error("selecting the same category should not reload")
	}
}

func TestCountryChange(t *testing.T) {
	src := &fakeSource{total: 5}
	store := newMemStore()
	a := newTestApp(src, store)
	run(a, a.loadBreaking())

	press(a, ",", "z", "z", "enter")
	if a.err == nil || a.breaking.Country() != "us" {
		t.Errorf("invalid country accepted: err=%v country=%s", a.err, a.breaking.Country())
	}

	press(a, ",", "g", "b", "enter")
	if a.breaking.Country() != "gb" || store.prefs[prefCountry] != "gb" {
		t.Fatalf("country=%s prefs=%v", a.breaking.Country(), store.prefs)
	}
	if got := src.heads[len(src.heads)-1]; got != "gb/general/1" {
		t.Errorf("last request = %s", got)
	}
}

func TestSearchDebounce(t *testing.T) {
	src := &fakeSource{total: 3}
	store := newMemStore()
	a := newTestApp(src, store)

	press(a, "/")
	if a.mode != modeSearch || a.tab != tabSearch {
		t.Fatalf("mode=%v tab=%v", a.mode, a.tab)
	}

	// Each keystroke schedules a tick; only the newest one may fire.
	a.Update(key("g"))
	first := a.searchSeq
	a.Update(key("o"))
	if a.searchSeq == first {
		t.Fatal("keystroke did not schedule a new tick")
	}

	_, cmd := a.Update(searchTickMsg{seq: first, query: "g"})
	if cmd != nil || len(src.searches) != 0 {
		t.Fatal("stale tick fired a search")
	}

	_, cmd = a.Update(searchTickMsg{seq: a.searchSeq, query: "go"})
	run(a, cmd)
	if len(src.searches) != 1 || src.searches[0] != "go/1" {
		t.Fatalf("searches = %v", src.searches)
	}
	if len(a.lists[tabSearch].articles) != 3 || store.prefs[prefQuery] != "go" {
		t.Errorf("results=%d prefs=%v", len(a.lists[tabSearch].articles), store.prefs)
	}

	// The same query again does not hit the source.
	_, cmd = a.Update(searchTickMsg{seq: a.searchSeq, query: " go "})
	run(a, cmd)
	if len(src.searches) != 1 {
		t.Errorf("repeated query searched again: %v", src.searches)
	}
}

func TestSearchIgnoresBlankQuery(t *testing.T) {
	src := &fakeSource{total: 3}
	a := newTestApp(src, newMemStore())

	press(a, "/", " ", "enter")
	if len(src.searches) != 0 {
		t.Errorf("blank query searched: %v", src.searches)
	}
}

func TestEnterSearchesImmediately(t *testing.T) {
	src := &fakeSource{total: 3}
	a := newTestApp(src, newMemStore())

	press(a, "/")
	a.Update(key("n"))
	a.Update(key("e"))
	a.Update(key("w"))
	pending := a.searchSeq
	press(a, "enter")
	if len(src.searches) != 1 || src.searches[0] != "new/1" {
		t.Fatalf("searches = %v", src.searches)
	}

	_, cmd := a.Update(searchTickMsg{seq: pending, query: "new"})
	if cmd != nil {
		t.Error("tick pending before enter should be dropped")
	}
}

func TestRestoredQuerySearchesOnStart(t *testing.T) {
	src := &fakeSource{total: 3}
	store := newMemStore()
	store.prefs[prefQuery] = "mars"
	store.prefs[prefCountry] = "de"
	store.prefs[prefCategory] = "nonsense"
	a := newTestApp(src, store)

	if a.breaking.Country() != "de" || a.breaking.Category() != "general" {
		t.Errorf("country=%s category=%s", a.breaking.Country(), a.breaking.Category())
	}
	if a.searchInput.Value() != "mars" {
		t.Errorf("query = %q", a.searchInput.Value())
	}

	run(a, a.fireSearch("mars"))
	if len(src.searches) != 1 || src.searches[0] != "mars/1" {
		t.Errorf("searches = %v", src.searches)
	}
}

func TestSaveDeleteUndo(t *testing.T) {
	src := &fakeSource{total: 3}
	store := newMemStore()
	a := newTestApp(src, store)
	run(a, a.loadBreaking())

	press(a, "s")
	if len(store.articles) != 1 || !a.saved["https://us-general.test/0"] {
		t.Fatalf("saved = %v", store.articles)
	}
	if len(a.lists[tabSaved].articles) != 1 {
		t.Fatalf("saved tab has %d articles", len(a.lists[tabSaved].articles))
	}

	press(a, "S", "d")
	if len(store.articles) != 0 || a.undo == nil {
		t.Fatalf("delete: store=%v undo=%v", store.articles, a.undo)
	}
	if len(a.lists[tabSaved].articles) != 0 {
		t.Error("saved tab not refreshed after delete")
	}

	press(a, "u")
	if len(store.articles) != 1 || a.undo != nil {
		t.Errorf("undo: store=%v undo=%v", store.articles, a.undo)
	}
	if a.notice != "Restored" {
		t.Errorf("notice = %q", a.notice)
	}
}

func TestDeleteOnlyOnSavedTab(t *testing.T) {
	src := &fakeSource{total: 3}
	store := newMemStore()
	store.articles = []cache.Article{{URL: "https://us-general.test/0", Title: "x"}}
	a := newTestApp(src, store)
	run(a, a.loadBreaking())

	press(a, "d")
	if len(store.articles) != 1 {
		t.Error("d deleted from the breaking tab")
	}
}

func TestTabCycling(t *testing.T) {
	a := newTestApp(&fakeSource{}, newMemStore())
	want := []tab{tabSearch, tabSaved, tabBreaking}
	for _, w := range want {
		press(a, "tab")
		if a.tab != w {
			t.Fatalf("tab = %v, want %v", a.tab, w)
		}
	}
}

func TestFlagEmoji(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"us", "🇺🇸"},
		{"GB", "🇬🇧"},
		{"u", ""},
		{"usa", ""},
		{"1a", ""},
	}
	for _, tt := range tests {
		if got := flagEmoji(tt.code); got != tt.want {
			t.Errorf("flagEmoji(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCategoryBarWraps(t *testing.T) {
	c := newCategoryBar("business")
	c.move(-1)
	if c.current() != "technology" {
		t.Errorf("current = %s", c.current())
	}
	c.move(1)
	if c.current() != "business" {
		t.Errorf("current = %s", c.current())
	}
	if c.pick(8) || !c.pick(7) || c.current() != "technology" {
		t.Errorf("pick: current = %s", c.current())
	}
}

func TestViewRenders(t *testing.T) {
	src := &fakeSource{total: 3}
	a := newTestApp(src, newMemStore())
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	run(a, a.loadBreaking())

	if out := a.View(); out == "" {
		t.Error("empty view")
	}
	press(a, "?")
	if out := a.View(); out == "" {
		t.Error("empty help view")
	}
}
