package feed

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/pkg/logger"
	"github.com/okian/maisearch/pkg/metrics"
)

// DefaultURL is the public music data endpoint.
const DefaultURL = "https://www.diving-fish.com/api/maimaidxprober/music_data"

// Source tells where a loaded catalog came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceFile   Source = "file"
)

// Result is a decoded feed.
type Result struct {
	Songs     []model.Song
	Skipped   int
	Source    Source
	FetchedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetryCount sets how many times a failed fetch is retried.
func WithRetryCount(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.http.SetRetryCount(n)
		}
	}
}

// WithRetryWait sets the initial and maximum backoff between retries.
func WithRetryWait(wait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.SetRetryWaitTime(wait).SetRetryMaxWaitTime(maxWait)
	}
}

// WithCache enables the last-good-payload fallback.
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client downloads the music data feed.
type Client struct {
	url   string
	http  *resty.Client
	cache *Cache
	log   logger.Logger
	now   func() time.Time
}

// NewClient returns a client for url. An empty url selects DefaultURL.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url: url,
		http: resty.New().
			SetTimeout(30*time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(200*time.Millisecond).
			SetRetryMaxWaitTime(2*time.Second).
			SetHeader("Accept", "application/json").
			AddRetryCondition(func(res *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return res != nil && (res.StatusCode() > 499 || res.StatusCode() == http.StatusTooManyRequests)
			}),
		log: logger.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads and decodes the feed. When the download or decoding fails
// and a cache is configured, the cached payload is used instead.
func (c *Client) Fetch(ctx context.Context) (Result, error) {
	res, err := c.fetchRemote(ctx)
	if err == nil {
		return res, nil
	}
	if c.cache == nil {
		return Result{}, err
	}
	c.log.Warn(ctx, "remote feed unavailable, using cache", logger.String("url", c.url), logger.Error(err))
	cached, cerr := c.fromCache(ctx)
	if cerr != nil {
		return Result{}, fmt.Errorf("%w (cache: %w)", err, cerr)
	}
	return cached, nil
}

func (c *Client) fetchRemote(ctx context.Context) (Result, error) {
	start := c.now()
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	metrics.RecordFeedFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordFeedFetch(string(SourceRemote), "error")
		return Result{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if !resp.IsSuccess() {
		metrics.RecordFeedFetch(string(SourceRemote), "error")
		return Result{}, fmt.Errorf("%w: status=%d", ErrFetch, resp.StatusCode())
	}

	body := resp.Body()
	songs, skipped, err := Decode(ctx, c.log, body)
	if err != nil {
		metrics.RecordFeedFetch(string(SourceRemote), "malformed")
		return Result{}, err
	}
	metrics.RecordFeedFetch(string(SourceRemote), "ok")

	fetchedAt := c.now()
	if c.cache != nil {
		if err := c.cache.Put(body, fetchedAt); err != nil {
			c.log.Warn(ctx, "feed cache update failed", logger.Error(err))
		}
	}
	c.log.Info(ctx, "feed downloaded",
		logger.Int("songs", len(songs)),
		logger.Int("skipped", skipped),
		logger.Int("bytes", len(body)))
	return Result{Songs: songs, Skipped: skipped, Source: SourceRemote, FetchedAt: fetchedAt}, nil
}

func (c *Client) fromCache(ctx context.Context) (Result, error) {
	payload, fetchedAt, ok, err := c.cache.Get()
	if err != nil {
		metrics.RecordFeedFetch(string(SourceCache), "error")
		return Result{}, err
	}
	if !ok {
		metrics.RecordFeedFetch(string(SourceCache), "empty")
		return Result{}, ErrNoData
	}
	songs, skipped, err := Decode(ctx, c.log, payload)
	if err != nil {
		metrics.RecordFeedFetch(string(SourceCache), "malformed")
		return Result{}, err
	}
	metrics.RecordFeedFetch(string(SourceCache), "ok")
	return Result{Songs: songs, Skipped: skipped, Source: SourceCache, FetchedAt: fetchedAt}, nil
}

// LoadFile decodes a feed stored on disk.
func LoadFile(ctx context.Context, path string, log logger.Logger) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.RecordFeedFetch(string(SourceFile), "error")
		return Result{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	songs, skipped, err := Decode(ctx, log, data)
	if err != nil {
		metrics.RecordFeedFetch(string(SourceFile), "malformed")
		return Result{}, err
	}
	metrics.RecordFeedFetch(string(SourceFile), "ok")
	var modTime time.Time
	if fi, err := os.Stat(path); err == nil {
		modTime = fi.ModTime()
	}
	return Result{Songs: songs, Skipped: skipped, Source: SourceFile, FetchedAt: modTime}, nil
}
