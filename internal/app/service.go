// Package service wires the catalog, the feed and the search and rating
// domain into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/okian/maisearch/internal/adapters/catalog"
	"github.com/okian/maisearch/internal/adapters/feed"
	"github.com/okian/maisearch/internal/domain/best"
	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/rating"
	"github.com/okian/maisearch/internal/domain/search"
	"github.com/okian/maisearch/internal/domain/textnorm"
	"github.com/okian/maisearch/pkg/logger"
	"github.com/okian/maisearch/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Sentinel kinds for service errors.
var (
	ErrNotFound     = errors.New("song not found")
	ErrNoFeed       = errors.New("no feed configured")
	ErrInvalidScore = errors.New("invalid score")
	ErrNotStarted   = errors.New("service not started")
)

// Feed supplies full catalog snapshots.
type Feed interface {
	Fetch(ctx context.Context) (feed.Result, error)
}

// RefreshResult describes the last catalog rebuild.
type RefreshResult struct {
	Source    feed.Source           `json:"source"`
	FetchedAt time.Time             `json:"fetched_at"`
	Report    catalog.RebuildReport `json:"report"`
	FeedSkip  int                   `json:"feed_skipped"`
}

// Service implements the dependencies of the HTTP API and the CLI.
type Service struct {
	mu sync.RWMutex

	store    catalog.Store
	feed     Feed
	norm     textnorm.Normalizer
	resolver *search.Resolver
	refresh  singleflight.Group

	searchLimit    int
	maxSearchLimit int
	maxDistance    int
	standardSize   int
	deluxeSize     int

	started     bool
	lastRefresh *RefreshResult
	closers     []io.Closer

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the catalog store. The service closes it on Stop.
func WithStore(store catalog.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithFeed sets the feed used by Refresh.
func WithFeed(f Feed) Option {
	return func(s *Service) {
		s.feed = f
	}
}

// WithNormalizer overrides the default text normalizer.
func WithNormalizer(n textnorm.Normalizer) Option {
	return func(s *Service) {
		s.norm = n
	}
}

// WithSearchLimits sets the default and maximum title search sizes.
func WithSearchLimits(def, maxLimit int) Option {
	return func(s *Service) {
		if def > 0 && maxLimit >= def {
			s.searchLimit = def
			s.maxSearchLimit = maxLimit
		}
	}
}

// WithMaxDistance sets the edit distance ceiling for title matches.
func WithMaxDistance(d int) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithBestSizes sets the capacities of the standard and deluxe best lists.
func WithBestSizes(standard, deluxe int) Option {
	return func(s *Service) {
		if standard > 0 && deluxe > 0 {
			s.standardSize = standard
			s.deluxeSize = deluxe
		}
	}
}

// WithCloser registers a resource released by Stop after the store.
func WithCloser(c io.Closer) Option {
	return func(s *Service) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		searchLimit:    3,
		maxSearchLimit: 50,
		maxDistance:    search.DefaultMaxDistance,
		standardSize:   best.DefaultStandardSize,
		deluxeSize:     best.DefaultDeluxeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the missing components. Without a store the catalog lives in memory.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = catalog.NewMemoryStore(catalog.WithLogger(s.logger.Named("catalog")))
	}
	if s.norm == nil {
		n, err := textnorm.New()
		if err != nil {
			return fmt.Errorf("init normalizer: %w", err)
		}
		s.norm = n
	}
	s.resolver = search.NewResolver(s.store, s.norm,
		search.WithMaxDistance(s.maxDistance),
		search.WithLogger(s.logger.Named("search")),
	)

	count, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	metrics.UpdateCatalogSongs(count)

	s.started = true
	s.logger.Info(ctx, "search service started",
		logger.Int("songs", count),
		logger.Int("searchLimit", s.searchLimit),
		logger.Int("maxDistance", s.maxDistance),
	)
	return nil
}

// Stop closes the catalog store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing catalog failed", logger.Error(err))
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing resource failed", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "search service stopped")
}

func (s *Service) ready() (*search.Resolver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.resolver, nil
}

// Refresh downloads the feed and rebuilds the catalog. Concurrent callers
// share a single rebuild.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	if _, err := s.ready(); err != nil {
		return RefreshResult{}, err
	}
	if s.feed == nil {
		return RefreshResult{}, ErrNoFeed
	}
	v, err, shared := s.refresh.Do("refresh", func() (any, error) {
		res, err := s.feed.Fetch(ctx)
		if err != nil {
			metrics.RecordErrorByComponent("feed", "fetch")
			return RefreshResult{}, fmt.Errorf("refresh: %w", err)
		}
		return s.replace(ctx, res)
	})
	if shared {
		s.logger.Debug(ctx, "joined in-flight refresh")
	}
	if err != nil {
		return RefreshResult{}, err
	}
	return v.(RefreshResult), nil
}

// ReplaceCatalog rebuilds the catalog from an already decoded feed.
func (s *Service) ReplaceCatalog(ctx context.Context, res feed.Result) (RefreshResult, error) {
	if _, err := s.ready(); err != nil {
		return RefreshResult{}, err
	}
	return s.replace(ctx, res)
}

func (s *Service) replace(ctx context.Context, res feed.Result) (RefreshResult, error) {
	rep, err := s.store.Replace(ctx, res.Songs)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("rebuild catalog: %w", err)
	}
	out := RefreshResult{Source: res.Source, FetchedAt: res.FetchedAt, Report: rep, FeedSkip: res.Skipped}

	s.mu.Lock()
	s.lastRefresh = &out
	s.mu.Unlock()

	s.logger.Info(ctx, "catalog refreshed",
		logger.String("source", string(res.Source)),
		logger.Int("indexed", rep.Indexed),
		logger.Int("skipped", rep.Skipped+res.Skipped),
	)
	return out, nil
}

// SongByID returns the song with id or ErrNotFound.
func (s *Service) SongByID(ctx context.Context, id int) (model.Song, error) {
	r, err := s.ready()
	if err != nil {
		return model.Song{}, err
	}
	song, ok, err := r.ResolveByID(ctx, id)
	if err != nil {
		return model.Song{}, err
	}
	if !ok {
		return model.Song{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return song, nil
}

// SongsByID returns the songs that exist among ids, in request order.
func (s *Service) SongsByID(ctx context.Context, ids []int) ([]model.Song, error) {
	r, err := s.ready()
	if err != nil {
		return nil, err
	}
	return r.ResolveMany(ctx, ids)
}

// SearchTitle runs a fuzzy title search. A zero limit selects the configured
// default and limits above the maximum are clamped.
func (s *Service) SearchTitle(ctx context.Context, query string, limit int) ([]model.Song, error) {
	r, err := s.ready()
	if err != nil {
		return nil, err
	}
	switch {
	case limit == 0:
		limit = s.searchLimit
	case limit > s.maxSearchLimit:
		limit = s.maxSearchLimit
	}
	return r.ResolveByTitle(ctx, query, limit)
}

// RatingResult is the rating of a single chart performance.
type RatingResult struct {
	DS          float64     `json:"ds"`
	Achievement float64     `json:"achievement"`
	Rating      int         `json:"rating"`
	Rate        rating.Rate `json:"rate"`
	Multiplier  float64     `json:"multiplier"`
}

// Rating computes the rating of one chart performance.
func (s *Service) Rating(ds, achievement float64) RatingResult {
	metrics.RecordRatingComputation()
	return RatingResult{
		DS:          ds,
		Achievement: achievement,
		Rating:      rating.Compute(ds, achievement),
		Rate:        rating.RateOf(achievement),
		Multiplier:  rating.Multiplier(achievement),
	}
}

// ScoreInput is one played chart submitted for a best board. When DS is not
// positive the constant is taken from the catalog.
type ScoreInput struct {
	SongID      int              `json:"song_id"`
	Title       string           `json:"title"`
	Type        string           `json:"type"`
	LevelIndex  model.LevelIndex `json:"level_index"`
	DS          float64          `json:"ds"`
	Achievement float64          `json:"achievements"`
	FC          string           `json:"fc"`
	FS          string           `json:"fs"`
	DXScore     int              `json:"dxScore"`
}

// BuildBoard rates every input and keeps the best of each list.
func (s *Service) BuildBoard(ctx context.Context, standard, deluxe []ScoreInput) (*best.Board, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	board, err := best.NewBoard(s.standardSize, s.deluxeSize)
	if err != nil {
		return nil, err
	}
	lists := []struct {
		name   string
		inputs []ScoreInput
		push   func(model.Record) bool
	}{
		{"standard", standard, board.PushStandard},
		{"deluxe", deluxe, board.PushDeluxe},
	}
	for _, l := range lists {
		rejected := 0
		for i, in := range l.inputs {
			rec, err := s.record(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", l.name, i, err)
			}
			if !l.push(rec) {
				rejected++
			}
		}
		metrics.RecordBestRejected(l.name, rejected)
	}
	metrics.RecordBestBoardBuilt()
	return board, nil
}

func (s *Service) record(ctx context.Context, in ScoreInput) (model.Record, error) {
	if in.LevelIndex < model.Basic || in.LevelIndex > model.ReMaster {
		return model.Record{}, fmt.Errorf("%w: level_index %d", ErrInvalidScore, in.LevelIndex)
	}
	rec := model.Record{
		SongID:      in.SongID,
		Title:       in.Title,
		Type:        in.Type,
		DS:          in.DS,
		Achievement: in.Achievement,
		LevelIndex:  in.LevelIndex,
		FC:          in.FC,
		FS:          in.FS,
		DXScore:     in.DXScore,
	}
	if in.SongID > 0 {
		song, ok, err := s.resolver.ResolveByID(ctx, in.SongID)
		if err != nil {
			return model.Record{}, err
		}
		if ok {
			fillFromSong(&rec, song)
		}
	}
	if rec.DS <= 0 {
		return model.Record{}, fmt.Errorf("%w: no difficulty constant for song %d %s", ErrInvalidScore, in.SongID, in.LevelIndex)
	}
	if rec.Title == "" {
		return model.Record{}, fmt.Errorf("%w: missing title", ErrInvalidScore)
	}
	rec.Rating = rating.Compute(rec.DS, rec.Achievement)
	rec.Rate = string(rating.RateOf(rec.Achievement))
	metrics.RecordRatingComputation()
	return rec, nil
}

func fillFromSong(rec *model.Record, song model.Song) {
	if rec.Title == "" {
		rec.Title = song.Title
	}
	if rec.Type == "" {
		rec.Type = song.Type
	}
	if rec.DS <= 0 {
		if ds, ok := song.ChartDS(rec.LevelIndex); ok {
			rec.DS = ds
		}
	}
	if i := int(rec.LevelIndex); i < len(song.Level) {
		rec.Level = song.Level[i]
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.HeapInuse)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	stats := map[string]any{
		"started":        s.started,
		"searchLimit":    s.searchLimit,
		"maxSearchLimit": s.maxSearchLimit,
		"maxDistance":    s.maxDistance,
		"standardSize":   s.standardSize,
		"deluxeSize":     s.deluxeSize,
		"goroutines":     runtime.NumGoroutine(),
	}
	if s.started {
		if n, err := s.store.Count(ctx); err == nil {
			stats["songs"] = n
			metrics.UpdateCatalogSongs(n)
		} else {
			stats["catalogError"] = err.Error()
		}
	}
	if s.lastRefresh != nil {
		stats["lastRefresh"] = *s.lastRefresh
	}
	return stats
}
