package config

import (
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const (
	ProviderNewsAPI = "newsapi"
	ProviderRSS     = "rss"

	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Country  string `yaml:"country,omitempty"`
	Enabled  bool   `yaml:"enabled"`
}

type CacheConfig struct {
	Backend   string `yaml:"backend" env:"NEWSDESK_CACHE_BACKEND"`
	RedisAddr string `yaml:"redis_addr" env:"NEWSDESK_REDIS_ADDR"`
}

type Config struct {
	Provider    string      `yaml:"provider" env:"NEWSDESK_PROVIDER"`
	APIKey      string      `yaml:"api_key" env:"NEWSDESK_API_KEY"`
	BaseURL     string      `yaml:"base_url" env:"NEWSDESK_BASE_URL"`
	Country     string      `yaml:"country" env:"NEWSDESK_COUNTRY"`
	Category    string      `yaml:"category" env:"NEWSDESK_CATEGORY"`
	PageSize    int         `yaml:"page_size"`
	SearchDelay string      `yaml:"search_delay"`
	CacheMaxAge string      `yaml:"cache_max_age"`
	Retention   string      `yaml:"retention"`
	Cache       CacheConfig `yaml:"cache"`
	LogLevel    string      `yaml:"log_level" env:"NEWSDESK_LOG_LEVEL"`
	Feeds       []Feed      `yaml:"feeds"`
}

// GetPageSize returns the page size, defaulting to 20.
func (c *Config) GetPageSize() int {
	if c.PageSize <= 0 {
		return 20
	}
	return c.PageSize
}

func (c *Config) SearchDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.SearchDelay)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

func (c *Config) CacheMaxAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheMaxAge)
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 7 * 24 * time.Hour
	}
	d, err := ParseDays(c.Retention)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// ParseDays parses a duration that may use a "Nd" day suffix.
func ParseDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func (c *Config) EnabledFeeds() []Feed {
	var out []Feed
	for _, f := range c.Feeds {
		if f.Enabled {
			out = append(out, f)
		}
	}
	return out
}

func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newsdesk", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "newsdesk", "newsdesk.db")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "newsdesk", "newsdesk.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config file over the embedded defaults, then applies .env
// and NEWSDESK_* environment overrides. A missing file is created from the
// defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Non-fatal: the embedded defaults are used either way
		_ = writeDefaults(path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Country = strings.ToLower(cfg.Country)
	cfg.Category = strings.ToLower(cfg.Category)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	switch cfg.Provider {
	case ProviderNewsAPI, ProviderRSS:
	default:
		return fmt.Errorf("unknown provider %q (valid: newsapi, rss)", cfg.Provider)
	}
	if cfg.Provider == ProviderNewsAPI {
		if err := validateURL(cfg.BaseURL); err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
	}
	if !ValidCountry(cfg.Country) {
		return fmt.Errorf("unsupported country %q", cfg.Country)
	}
	if !ValidCategory(cfg.Category) {
		return fmt.Errorf("unknown category %q (valid: %s)", cfg.Category, strings.Join(categories, ", "))
	}
	switch cfg.Cache.Backend {
	case "", BackendSQLite:
	case BackendRedis:
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("cache: redis backend needs redis_addr")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q (valid: sqlite, redis)", cfg.Cache.Backend)
	}

	for i, f := range cfg.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed %d: name is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feed %q: url is required", f.Name)
		}
		if err := validateURL(f.URL); err != nil {
			return fmt.Errorf("feed %q: %w", f.Name, err)
		}
		if !ValidCategory(f.Category) {
			return fmt.Errorf("feed %q: unknown category %q", f.Name, f.Category)
		}
		if f.Country != "" && !ValidCountry(f.Country) {
			return fmt.Errorf("feed %q: unsupported country %q", f.Name, f.Country)
		}
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}
