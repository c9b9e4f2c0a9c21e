package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/cache"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNetwork means the API was unreachable and nothing was cached.
	ErrNetwork = errors.New("network failure")
	// ErrConversion means the API answered with a body we could not decode.
	ErrConversion = errors.New("conversion error")
)

// APIError is a non-success answer from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("news api %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("news api %d", e.StatusCode)
}

// ResponseCache stores raw response bodies. *cache.Cache and
// *cache.RedisResponses both satisfy it.
type ResponseCache interface {
	GetResponse(ctx context.Context, key string) ([]byte, time.Time, error)
	PutResponse(ctx context.Context, key string, body []byte) error
}

// requestTimeout bounds a shared request once no caller owns it.
const requestTimeout = 30 * time.Second

type Options struct {
	BaseURL  string
	APIKey   string
	PageSize int
	// MaxAge is how long a cached body is served without asking the API.
	MaxAge     time.Duration
	HTTPClient *http.Client
	Cache      ResponseCache
	Logger     *slog.Logger
}

type Client struct {
	baseURL  *url.URL
	apiKey   string
	pageSize int
	maxAge   time.Duration
	http     *http.Client
	cache    ResponseCache
	logger   *slog.Logger
	group    singleflight.Group
}

func New(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = "https://newsapi.org/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("news api key not configured (set api_key or NEWSDESK_API_KEY)")
	}

	c := &Client{
		baseURL:  u,
		apiKey:   opts.APIKey,
		pageSize: opts.PageSize,
		maxAge:   opts.MaxAge,
		http:     opts.HTTPClient,
		cache:    opts.Cache,
		logger:   opts.Logger,
	}
	if c.pageSize <= 0 {
		c.pageSize = 20
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

// TopHeadlines fetches one page of breaking news for a country and category.
func (c *Client) TopHeadlines(ctx context.Context, country, category string, page int) (*cache.Page, error) {
	q := url.Values{}
	q.Set("country", country)
	if category != "" {
		q.Set("category", category)
	}
	return c.get(ctx, "v2/top-headlines", q, page)
}

// Search fetches one page of articles matching a free-text query.
func (c *Client) Search(ctx context.Context, query string, page int) (*cache.Page, error) {
	q := url.Values{}
	q.Set("q", query)
	return c.get(ctx, "v2/everything", q, page)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, page int) (*cache.Page, error) {
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))

	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: q.Encode()})
	key := u.String()

	// The shared request must outlive whichever caller started it; each
	// caller stops waiting on its own context instead.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
		defer cancel()
		return c.fetch(fctx, key)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	// Each caller gets its own slice; pagers append to it.
	p := *res.Val.(*cache.Page)
	p.Articles = append([]cache.Article(nil), p.Articles...)
	return &p, nil
}

func (c *Client) fetch(ctx context.Context, key string) (*cache.Page, error) {
	cached, storedAt, cacheErr := c.cached(ctx, key)
	if cacheErr == nil && time.Since(storedAt) < c.maxAge {
		c.logger.Debug("serving cached response", "url", key, "age", time.Since(storedAt).Round(time.Second))
		return decode(cached)
	}

	body, err := c.do(ctx, key)
	if errors.Is(err, ErrNetwork) && cacheErr == nil {
		c.logger.Warn("network unavailable, serving stale response", "url", key, "error", err)
		p, derr := decode(cached)
		if derr != nil {
			return nil, derr
		}
		p.Stale = true
		return p, nil
	}
	if err != nil {
		return nil, err
	}

	p, err := decode(body)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.PutResponse(ctx, key, body); err != nil {
			c.logger.Warn("caching response failed", "url", key, "error", err)
		}
	}
	return p, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, time.Time, error) {
	if c.cache == nil {
		return nil, time.Time{}, cache.ErrMiss
	}
	body, storedAt, err := c.cache.GetResponse(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("reading response cache failed", "url", key, "error", err)
	}
	return body, storedAt, err
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}
	c.logger.Debug("news api request", "url", rawURL, "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}
	return body, nil
}
