// Package search resolves song queries against the catalog.
//
// A title query runs through a small state machine: the query as typed is
// tried first, and only when it yields no candidates is it retried once in
// the alternate script. Surviving candidates are ranked by edit distance.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/textnorm"
	"github.com/okian/maisearch/pkg/logger"
	"github.com/okian/maisearch/pkg/metrics"
)

// ErrInvalidLimit is returned when a title search asks for fewer than one result.
var ErrInvalidLimit = errors.New("invalid search limit")

// Catalog is the read side of the catalog store.
type Catalog interface {
	LookupByID(ctx context.Context, id int) (model.Song, bool, error)
	LookupByToken(ctx context.Context, token string) ([]model.Song, error)
}

type phase int

const (
	phasePrimary phase = iota
	phaseAlternate
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phasePrimary:
		return "primary"
	case phaseAlternate:
		return "alternate"
	default:
		return "done"
	}
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDistance overrides DefaultMaxDistance.
func WithMaxDistance(d int) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.maxDistance = d
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// Resolver answers id and title queries.
type Resolver struct {
	catalog     Catalog
	norm        textnorm.Normalizer
	maxDistance int
	log         logger.Logger
}

// NewResolver returns a Resolver over catalog. The caller owns the catalog's
// lifecycle.
func NewResolver(catalog Catalog, norm textnorm.Normalizer, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:     catalog,
		norm:        norm,
		maxDistance: DefaultMaxDistance,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveByID returns the song with id; ok is false if there is none.
func (r *Resolver) ResolveByID(ctx context.Context, id int) (model.Song, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordSearch("id", msSince(start)) }()

	song, ok, err := r.catalog.LookupByID(ctx, id)
	if err != nil {
		return model.Song{}, false, fmt.Errorf("resolve id %d: %w", id, err)
	}
	return song, ok, nil
}

// ResolveMany looks up each id in order, skipping ids that do not exist.
func (r *Resolver) ResolveMany(ctx context.Context, ids []int) ([]model.Song, error) {
	out := make([]model.Song, 0, len(ids))
	for _, id := range ids {
		song, ok, err := r.ResolveByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.log.Debug(ctx, "song id not found", logger.Int("id", id))
			continue
		}
		out = append(out, song)
	}
	return out, nil
}

// ResolveByTitle returns up to limit songs whose titles best match query.
// No match is an empty slice, not an error.
func (r *Resolver) ResolveByTitle(ctx context.Context, query string, limit int) ([]model.Song, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer func() { metrics.RecordSearch("title", msSince(start)) }()

	if strings.TrimSpace(query) == "" {
		metrics.RecordSearchResults(0)
		return []model.Song{}, nil
	}

	text := query
	var candidates []model.Song
	for p := phasePrimary; p != phaseDone; {
		found, err := r.collect(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("resolve title %q (%s): %w", query, p, err)
		}
		if len(found) > 0 {
			candidates = found
			metrics.RecordSearchPhase(p.String())
			break
		}
		switch p {
		case phasePrimary:
			alt := r.norm.ToAlternateScript(query)
			if alt == query {
				p = phaseDone
				continue
			}
			text = alt
			p = phaseAlternate
		default:
			p = phaseDone
		}
	}

	songs := Rank(text, candidates, r.maxDistance, limit)
	metrics.RecordSearchResults(len(songs))
	r.log.Debug(ctx, "title resolved",
		logger.String("query", query),
		logger.String("ranked_by", text),
		logger.Int("candidates", len(candidates)),
		logger.Int("results", len(songs)))
	return songs, nil
}

// collect unions the token lookups for text, keyed by song id.
func (r *Resolver) collect(ctx context.Context, text string) ([]model.Song, error) {
	tokens := r.norm.StripStopwords(r.norm.Segment(text))
	seenTokens := make(map[string]struct{}, len(tokens))
	seenIDs := make(map[int]struct{})
	var out []model.Song
	for _, tok := range tokens {
		folded := textnorm.Fold(tok)
		if folded == "" {
			continue
		}
		if _, dup := seenTokens[folded]; dup {
			continue
		}
		seenTokens[folded] = struct{}{}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		songs, err := r.catalog.LookupByToken(ctx, folded)
		if err != nil {
			return nil, err
		}
		for _, s := range songs {
			if _, dup := seenIDs[s.ID]; dup {
				continue
			}
			seenIDs[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
