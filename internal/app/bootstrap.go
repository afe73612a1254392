package service

import (
	"context"
	"fmt"

	"github.com/okian/maisearch/internal/adapters/catalog"
	"github.com/okian/maisearch/internal/adapters/feed"
	"github.com/okian/maisearch/internal/config"
	"github.com/okian/maisearch/pkg/logger"
)

// Open builds and starts a Service from cfg: the configured catalog store,
// the feed client with its payload cache and the search limits. The caller
// owns the result and must Stop it.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.Get()
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	feedOpts := []feed.Option{
		feed.WithTimeout(cfg.FeedTimeout()),
		feed.WithRetryCount(cfg.FeedRetryCount),
		feed.WithLogger(log.Named("feed")),
	}
	var cache *feed.Cache
	if cfg.FeedCachePath != "" {
		cache, err = feed.OpenCache(cfg.FeedCachePath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open feed cache: %w", err)
		}
		feedOpts = append(feedOpts, feed.WithCache(cache))
	}

	opts := []Option{
		WithLogger(log),
		WithStore(store),
		WithFeed(feed.NewClient(cfg.FeedURL, feedOpts...)),
		WithSearchLimits(cfg.SearchLimit, cfg.MaxSearchLimit),
		WithMaxDistance(cfg.MaxDistance),
		WithBestSizes(cfg.StandardBestSize, cfg.DeluxeBestSize),
	}
	if cache != nil {
		opts = append(opts, WithCloser(cache))
	}

	svc := New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	return svc, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (catalog.Store, error) {
	storeLog := catalog.WithLogger(log.Named("catalog"))
	switch cfg.CatalogDriver {
	case config.DriverMemory:
		return catalog.NewMemoryStore(storeLog), nil
	case config.DriverSQLite:
		return catalog.OpenSQLStore(ctx, cfg.DBPath, storeLog)
	default:
		return nil, fmt.Errorf("%w: unknown catalog driver %q", config.ErrInvalidConfig, cfg.CatalogDriver)
	}
}
