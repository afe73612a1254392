// Package catalog persists the song catalog and answers id and title-token lookups.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/textnorm"
	"github.com/okian/maisearch/pkg/logger"
	"github.com/okian/maisearch/pkg/metrics"
)

// Sentinel kinds for catalog errors.
var (
	ErrUnavailable = errors.New("catalog unavailable")
	ErrMalformed   = errors.New("catalog record malformed")
)

// Store provides read access to an indexed catalog and a wholesale rebuild.
type Store interface {
	// LookupByID returns the song with id. ok is false when no song has it.
	LookupByID(ctx context.Context, id int) (song model.Song, ok bool, err error)

	// LookupByToken returns every song whose folded title contains the folded
	// token, ordered by id.
	LookupByToken(ctx context.Context, token string) ([]model.Song, error)

	// Replace swaps the whole catalog for songs. Readers observe either the
	// previous or the new catalog, never a mix.
	Replace(ctx context.Context, songs []model.Song) (RebuildReport, error)

	// Count returns the number of indexed songs.
	Count(ctx context.Context) (int, error)

	Close() error
}

// RebuildReport summarizes a Replace call.
type RebuildReport struct {
	Indexed   int           `json:"indexed"`
	Skipped   int           `json:"skipped"`
	Invalid   int           `json:"invalid"`
	Duplicate int           `json:"duplicate"`
	Took      time.Duration `json:"took"`
}

// Option configures a store.
type Option func(*options)

type options struct {
	log       logger.Logger
	batchSize int
}

// WithLogger sets the logger used to report skipped songs.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithBatchSize sets how many rows SQLStore inserts per statement.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{log: logger.Nop(), batchSize: 200}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// entry is a validated song with its search keyword.
type entry struct {
	song    model.Song
	keyword string
}

// prepare validates songs and drops duplicate ids, keeping the first.
func prepare(ctx context.Context, log logger.Logger, songs []model.Song) ([]entry, RebuildReport) {
	var rep RebuildReport
	seen := make(map[int]struct{}, len(songs))
	out := make([]entry, 0, len(songs))
	for _, s := range songs {
		if err := s.Validate(); err != nil {
			rep.Invalid++
			log.Warn(ctx, "skipping invalid song", logger.Int("id", s.ID), logger.String("title", s.Title), logger.Error(err))
			continue
		}
		if _, dup := seen[s.ID]; dup {
			rep.Duplicate++
			log.Warn(ctx, "skipping duplicate song id", logger.Int("id", s.ID), logger.String("title", s.Title))
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, entry{song: s, keyword: textnorm.Fold(s.Title)})
	}
	rep.Skipped = rep.Invalid + rep.Duplicate
	rep.Indexed = len(out)
	metrics.RecordCatalogSkipped("invalid", rep.Invalid)
	metrics.RecordCatalogSkipped("duplicate", rep.Duplicate)
	return out, rep
}

func observeRebuild(start time.Time, count int, err error) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordCatalogRebuild("error", ms)
		metrics.RecordErrorByComponent("catalog", "rebuild")
		return
	}
	metrics.RecordCatalogRebuild("ok", ms)
	metrics.UpdateCatalogSongs(count)
	metrics.UpdateCatalogLastRebuildUnix(float64(time.Now().Unix()))
}

func observeLookup(op string, start time.Time) {
	metrics.RecordCatalogLookupLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func unavailable(op string, err error) error {
	metrics.RecordErrorByComponent("catalog", "unavailable")
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func sortEntries(entries []entry) {
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.song.ID, b.song.ID)
	})
}
