package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/matheuskafuri/newsdesk/internal/feed"
	"github.com/matheuskafuri/newsdesk/internal/newsapi"
	"github.com/matheuskafuri/newsdesk/internal/pager"
)

// session is everything a command needs once config is loaded.
type session struct {
	cfg     *config.Config
	db      *cache.Cache
	src     pager.Source
	logger  *slog.Logger
	closers []func() error
}

// open loads config, applies the global flags, and opens the cache and the
// news source. With logToFile set, logs go to the state directory instead of
// stderr so they do not draw over the TUI.
func open(logToFile bool) (*session, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := applyFlags(cfg, flagCountry, flagCategory); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	var w io.Writer = os.Stderr
	if logToFile {
		f, err := openLogFile(config.LogPath())
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, f.Close)
		w = f
	}
	s.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	s.db, err = cache.Open(config.CachePath())
	if err != nil {
		s.close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	s.closers = append(s.closers, s.db.Close)

	s.src, err = s.newSource()
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) newSource() (pager.Source, error) {
	cfg := s.cfg
	if cfg.Provider == config.ProviderRSS {
		feeds := cfg.EnabledFeeds()
		s.logger.Debug("using rss provider", "feeds", len(feeds))
		return feed.NewSource(feed.NewRSSFetcher(), feeds, cfg.GetPageSize(), s.logger), nil
	}

	var responses newsapi.ResponseCache = s.db
	if cfg.Cache.Backend == config.BackendRedis {
		r := cache.NewRedisResponses(cfg.Cache.RedisAddr, cfg.RetentionDuration())
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			r.Close()
			s.logger.Warn("redis unavailable, caching responses in sqlite", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			responses = r
			s.closers = append(s.closers, r.Close)
		}
	}

	client, err := newsapi.New(newsapi.Options{
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		PageSize: cfg.GetPageSize(),
		MaxAge:   cfg.CacheMaxAgeDuration(),
		Cache:    responses,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating news client: %w (set api_key in %s or NEWSDESK_API_KEY)", err, configPath())
	}
	return client, nil
}

func (s *session) close() error {
	var errs []error
	for _, c := range slices.Backward(s.closers) {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultConfigPath()
}

// applyFlags overrides the configured country and category.
func applyFlags(cfg *config.Config, country, category string) error {
	if country != "" {
		country = strings.ToLower(country)
		if !config.ValidCountry(country) {
			return fmt.Errorf("unsupported country %q", country)
		}
		cfg.Country = country
	}
	if category != "" {
		category = strings.ToLower(category)
		if !config.ValidCategory(category) {
			return fmt.Errorf("unknown category %q (want one of %s)", category, strings.Join(config.Categories(), ", "))
		}
		cfg.Category = category
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
