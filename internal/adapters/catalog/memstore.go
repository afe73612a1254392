package catalog

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/textnorm"
	"github.com/okian/maisearch/pkg/logger"
)

var errClosed = errors.New("store closed")

// snapshot is an immutable catalog generation.
type snapshot struct {
	byID    map[int]int // id -> index into entries
	entries []entry     // ordered by id
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the catalog in process memory. Each Replace publishes a
// new snapshot; readers keep using whichever snapshot they loaded.
type MemoryStore struct {
	snap   atomic.Pointer[snapshot]
	closed atomic.Bool
	opts   options
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{opts: newOptions(opts)}
	s.snap.Store(&snapshot{byID: map[int]int{}})
	return s
}

func (s *MemoryStore) load() (*snapshot, error) {
	if s.closed.Load() {
		return nil, unavailable("read", errClosed)
	}
	return s.snap.Load(), nil
}

// LookupByID implements Store.
func (s *MemoryStore) LookupByID(_ context.Context, id int) (model.Song, bool, error) {
	defer observeLookup("id", time.Now())
	snap, err := s.load()
	if err != nil {
		return model.Song{}, false, err
	}
	i, ok := snap.byID[id]
	if !ok {
		return model.Song{}, false, nil
	}
	return snap.entries[i].song, true, nil
}

// LookupByToken implements Store.
func (s *MemoryStore) LookupByToken(_ context.Context, token string) ([]model.Song, error) {
	defer observeLookup("token", time.Now())
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	folded := textnorm.Fold(token)
	if folded == "" {
		return nil, nil
	}
	var out []model.Song
	for _, e := range snap.entries {
		if strings.Contains(e.keyword, folded) {
			out = append(out, e.song)
		}
	}
	return out, nil
}

// Replace implements Store.
func (s *MemoryStore) Replace(ctx context.Context, songs []model.Song) (RebuildReport, error) {
	start := time.Now()
	if s.closed.Load() {
		err := unavailable("replace", errClosed)
		observeRebuild(start, 0, err)
		return RebuildReport{}, err
	}
	entries, rep := prepare(ctx, s.opts.log, songs)
	sortEntries(entries)
	next := &snapshot{byID: make(map[int]int, len(entries)), entries: entries}
	for i, e := range entries {
		next.byID[e.song.ID] = i
	}
	s.snap.Store(next)

	rep.Took = time.Since(start)
	observeRebuild(start, rep.Indexed, nil)
	s.opts.log.Info(ctx, "catalog rebuilt",
		logger.Int("indexed", rep.Indexed),
		logger.Int("skipped", rep.Skipped),
		logger.Duration("took", rep.Took))
	return rep, nil
}

// Count implements Store.
func (s *MemoryStore) Count(context.Context) (int, error) {
	snap, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(snap.entries), nil
}

// Close marks the store unusable.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}
