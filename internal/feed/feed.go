package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/classify"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/mmcdole/gofeed"
)

type Fetcher interface {
	Fetch(ctx context.Context, f config.Feed) ([]cache.Article, error)
}

type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser()}
}

func (f *RSSFetcher) Fetch(ctx context.Context, src config.Feed) ([]cache.Article, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.Name, err)
	}

	now := time.Now()
	articles := make([]cache.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		var image string
		if item.Image != nil {
			image = item.Image.URL
		}
		var author string
		if item.Author != nil {
			author = item.Author.Name
		}

		articles = append(articles, cache.Article{
			URL:         item.Link,
			Title:       strings.TrimSpace(item.Title),
			Description: truncate(stripHTML(desc), 300),
			ImageURL:    image,
			Source:      src.Name,
			Author:      author,
			Published:   pub,
		})
	}
	return articles, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type FetchResult struct {
	Articles []cache.Article
	Errors   []error
}

// collect fetches every feed concurrently. Articles come back in feed order,
// not completion order, and are neither sorted nor deduplicated.
func collect(ctx context.Context, fetcher Fetcher, feeds []config.Feed) FetchResult {
	perFeed := make([][]cache.Article, len(feeds))
	errs := make([]error, len(feeds))

	var wg sync.WaitGroup
	for i, src := range feeds {
		wg.Add(1)
		go func(i int, s config.Feed) {
			defer wg.Done()
			perFeed[i], errs[i] = fetcher.Fetch(ctx, s)
		}(i, src)
	}
	wg.Wait()

	var result FetchResult
	for i := range feeds {
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
			continue
		}
		result.Articles = append(result.Articles, perFeed[i]...)
	}
	return result
}

// merge sorts newest first and keeps the first copy of each URL.
func merge(articles []cache.Article) []cache.Article {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})
	return dedupe(articles)
}

func dedupe(articles []cache.Article) []cache.Article {
	seen := make(map[string]bool, len(articles))
	out := articles[:0]
	for _, a := range articles {
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, a)
	}
	return out
}

// Source serves headlines and search from configured RSS/Atom feeds, paging
// through the merged item list locally.
type Source struct {
	fetcher  Fetcher
	feeds    []config.Feed
	pageSize int
	logger   *slog.Logger
}

func NewSource(fetcher Fetcher, feeds []config.Feed, pageSize int, logger *slog.Logger) *Source {
	if pageSize <= 0 {
		pageSize = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{fetcher: fetcher, feeds: feeds, pageSize: pageSize, logger: logger}
}

// TopHeadlines uses feeds of the given category. Feeds without a country
// match every country. For any category but general, items from general
// feeds are included when their keywords classify them into that category.
func (s *Source) TopHeadlines(ctx context.Context, country, category string, page int) (*cache.Page, error) {
	var matched []config.Feed
	direct := make(map[string]bool)
	for _, f := range s.feeds {
		if f.Country != "" && !strings.EqualFold(f.Country, country) {
			continue
		}
		switch {
		case strings.EqualFold(f.Category, category):
			direct[f.Name] = true
		case strings.EqualFold(f.Category, classify.General):
		default:
			continue
		}
		matched = append(matched, f)
	}
	articles, err := s.fetch(ctx, matched)
	if err != nil {
		return nil, err
	}
	// Membership is decided per copy before merging, so an article carried by
	// both a category feed and a general feed keeps its category copy.
	kept := articles[:0]
	for _, a := range articles {
		if direct[a.Source] || classify.Classify(a.Title, a.Description) == strings.ToLower(category) {
			kept = append(kept, a)
		}
	}
	return s.page(merge(kept), page), nil
}

func (s *Source) Search(ctx context.Context, query string, page int) (*cache.Page, error) {
	articles, err := s.fetch(ctx, s.feeds)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	matched := articles[:0]
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Description), q) {
			matched = append(matched, a)
		}
	}
	return s.page(merge(matched), page), nil
}

func (s *Source) fetch(ctx context.Context, feeds []config.Feed) ([]cache.Article, error) {
	if len(feeds) == 0 {
		return nil, nil
	}
	result := collect(ctx, s.fetcher, feeds)
	for _, err := range result.Errors {
		s.logger.Warn("feed fetch failed", "error", err)
	}
	// Partial results are fine; only fail when every feed failed.
	if len(result.Errors) == len(feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %w", len(feeds), result.Errors[0])
	}
	return result.Articles, nil
}

func (s *Source) page(articles []cache.Article, page int) *cache.Page {
	if page < 1 {
		page = 1
	}
	p := &cache.Page{TotalResults: len(articles)}
	start := (page - 1) * s.pageSize
	if start >= len(articles) {
		return p
	}
	end := min(start+s.pageSize, len(articles))
	p.Articles = append([]cache.Article(nil), articles[start:end]...)
	return p
}
