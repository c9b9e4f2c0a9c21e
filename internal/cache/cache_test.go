package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleArticles() []Article {
	now := time.Now()
	return []Article{
		{URL: "https://a.com", Source: "Reuters", Title: "Post A", Description: "Desc A", Published: now.Add(-1 * time.Hour), SavedAt: now.Add(-3 * time.Minute)},
		{URL: "https://b.com", Source: "BBC News", Title: "Post B", Description: "Desc B", Published: now.Add(-2 * time.Hour), SavedAt: now.Add(-2 * time.Minute)},
		{URL: "https://c.com", Source: "Reuters", Title: "Post C", Description: "Desc C about markets", Published: now.Add(-48 * time.Hour), SavedAt: now.Add(-1 * time.Minute)},
	}
}

func saveAll(t *testing.T, db *Cache, articles []Article) {
	t.Helper()
	for _, a := range articles {
		if err := db.SaveArticle(a); err != nil {
			t.Fatalf("save %s: %v", a.URL, err)
		}
	}
}

func TestSaveAndList(t *testing.T) {
	db := testDB(t)
	saveAll(t, db, sampleArticles())

	got, err := db.SavedArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	// Most recently saved first
	if got[0].URL != "https://c.com" {
		t.Errorf("expected newest save first, got %s", got[0].URL)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	db := testDB(t)
	articles := sampleArticles()
	saveAll(t, db, articles)

	articles[0].Title = "Updated Post A"
	if err := db.SaveArticle(articles[0]); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := db.SavedArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles after replace, got %d", len(got))
	}
	for _, a := range got {
		if a.URL == "https://a.com" && a.Title != "Updated Post A" {
			t.Errorf("expected updated title, got %q", a.Title)
		}
	}
}

func TestSaveRequiresURL(t *testing.T) {
	db := testDB(t)
	err := db.SaveArticle(Article{Title: "no link"})
	if !errors.Is(err, ErrNoURL) {
		t.Errorf("expected ErrNoURL, got %v", err)
	}
}

func TestSaveSetsSavedAt(t *testing.T) {
	db := testDB(t)
	if err := db.SaveArticle(Article{URL: "https://x.com", Title: "X", Published: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := db.SavedArticles(QueryOpts{})
	if len(got) != 1 || got[0].SavedAt.IsZero() {
		t.Fatalf("expected saved_at to be set, got %+v", got)
	}
}

func TestDeleteReturnsArticle(t *testing.T) {
	db := testDB(t)
	saveAll(t, db, sampleArticles())

	deleted, err := db.DeleteArticle("https://b.com")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Title != "Post B" {
		t.Errorf("expected deleted Post B, got %q", deleted.Title)
	}

	saved, _ := db.IsSaved("https://b.com")
	if saved {
		t.Error("expected article to be gone")
	}

	// Undo
	if err := db.SaveArticle(deleted); err != nil {
		t.Fatalf("undo: %v", err)
	}
	saved, _ = db.IsSaved("https://b.com")
	if !saved {
		t.Error("expected article restored after undo")
	}
}

func TestDeleteMissing(t *testing.T) {
	db := testDB(t)
	_, err := db.DeleteArticle("https://nope.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSavedSearch(t *testing.T) {
	db := testDB(t)
	saveAll(t, db, sampleArticles())

	got, err := db.SavedArticles(QueryOpts{Search: "markets"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://c.com" {
		t.Errorf("expected only c.com, got %v", got)
	}
}

func TestSavedSourceFilter(t *testing.T) {
	db := testDB(t)
	saveAll(t, db, sampleArticles())

	got, err := db.SavedArticles(QueryOpts{Source: "Reuters"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 Reuters articles, got %d", len(got))
	}
}

func TestSavedLimit(t *testing.T) {
	db := testDB(t)
	saveAll(t, db, sampleArticles())

	got, err := db.SavedArticles(QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 article with limit, got %d", len(got))
	}
}

func TestEmptyDB(t *testing.T) {
	db := testDB(t)

	got, err := db.SavedArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected 0 articles in empty db, got %d", len(got))
	}
}

func TestResponseRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, _, err := db.GetResponse(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	if err := db.PutResponse(ctx, "k", []byte(`{"status":"ok"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	body, storedAt, err := db.GetResponse(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != `{"status":"ok"}` {
		t.Errorf("unexpected body %q", body)
	}
	if time.Since(storedAt) > 5*time.Second {
		t.Errorf("stored_at too old: %v", storedAt)
	}

	if err := db.PutResponse(ctx, "k", []byte(`{}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	body, _, _ = db.GetResponse(ctx, "k")
	if string(body) != `{}` {
		t.Errorf("expected overwritten body, got %q", body)
	}
}

func TestPruneKeepsSavedArticles(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	saveAll(t, db, sampleArticles())
	if err := db.PutResponse(ctx, "old", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	deleted, err := db.Prune(0)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned response, got %d", deleted)
	}

	got, _ := db.SavedArticles(QueryOpts{})
	if len(got) != 3 {
		t.Errorf("saved articles must survive prune, got %d", len(got))
	}
}

func TestPruneNothingToDelete(t *testing.T) {
	db := testDB(t)
	if err := db.PutResponse(context.Background(), "fresh", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	deleted, err := db.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 pruned, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	saveAll(t, db, sampleArticles())
	db.PutResponse(context.Background(), "k", []byte("x"))

	s, err := db.Stats(dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.Saved != 3 {
		t.Errorf("expected 3 saved, got %d", s.Saved)
	}
	if s.Responses != 1 {
		t.Errorf("expected 1 response, got %d", s.Responses)
	}
	if s.Size == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestPreferences(t *testing.T) {
	db := testDB(t)

	v, err := db.Preference("country")
	if err != nil {
		t.Fatalf("preference: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty preference, got %q", v)
	}

	db.SetPreference("country", "de")
	db.SetPreference("country", "gb")
	v, _ = db.Preference("country")
	if v != "gb" {
		t.Errorf("expected gb, got %q", v)
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "deep", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}
