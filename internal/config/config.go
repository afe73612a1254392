// Package config defines service configuration and its defaults.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Catalog drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config contains process configuration shared by the HTTP server and the CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CatalogDriver selects the catalog store: sqlite or memory.
	CatalogDriver string `koanf:"catalog_driver"`
	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	FeedURL        string `koanf:"feed_url"`
	FeedCachePath  string `koanf:"feed_cache_path"`
	FeedTimeoutMS  int    `koanf:"feed_timeout_ms"`
	FeedRetryCount int    `koanf:"feed_retry_count"`

	// SearchLimit is used when a title search does not ask for a size.
	SearchLimit int `koanf:"search_limit"`
	// MaxSearchLimit caps any requested size.
	MaxSearchLimit int `koanf:"max_search_limit"`
	// MaxDistance is the edit distance at which a title stops matching.
	MaxDistance int `koanf:"max_distance"`

	StandardBestSize int `koanf:"standard_best_size"`
	DeluxeBestSize   int `koanf:"deluxe_best_size"`

	// RefreshOnStart downloads the feed before serving when the catalog is empty.
	RefreshOnStart bool `koanf:"refresh_on_start"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		CatalogDriver:    DriverSQLite,
		DBPath:           "data/maisearch.sqlite3",
		FeedURL:          "https://www.diving-fish.com/api/maimaidxprober/music_data",
		FeedCachePath:    "data/feed.db",
		FeedTimeoutMS:    30_000,
		FeedRetryCount:   2,
		SearchLimit:      3,
		MaxSearchLimit:   50,
		MaxDistance:      100,
		StandardBestSize: 35,
		DeluxeBestSize:   15,
		RefreshOnStart:   true,
	}
}

// FeedTimeout returns FeedTimeoutMS as a duration.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.FeedTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CatalogDriver != DriverSQLite && c.CatalogDriver != DriverMemory:
		return fmt.Errorf("%w: unknown catalog_driver %q", ErrInvalidConfig, c.CatalogDriver)
	case c.CatalogDriver == DriverSQLite && strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.SearchLimit < 1:
		return fmt.Errorf("%w: search_limit must be positive", ErrInvalidConfig)
	case c.MaxSearchLimit < c.SearchLimit:
		return fmt.Errorf("%w: max_search_limit must be at least search_limit", ErrInvalidConfig)
	case c.MaxDistance < 1:
		return fmt.Errorf("%w: max_distance must be positive", ErrInvalidConfig)
	case c.StandardBestSize < 1 || c.DeluxeBestSize < 1:
		return fmt.Errorf("%w: best list sizes must be positive", ErrInvalidConfig)
	case c.FeedRetryCount < 0:
		return fmt.Errorf("%w: feed_retry_count must not be negative", ErrInvalidConfig)
	}
	return nil
}
