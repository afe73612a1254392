package search

import (
	"cmp"
	"slices"

	"github.com/hbollon/go-edlib"
	"github.com/okian/maisearch/internal/domain/model"
)

// DefaultMaxDistance is the edit distance at and above which a candidate is
// considered a meaningless match.
const DefaultMaxDistance = 100

type scored struct {
	song     model.Song
	distance int
}

// Rank orders candidates by Levenshtein distance between query and title,
// nearest first, with id as the tie-break. Candidates at or beyond
// maxDistance are dropped and at most limit songs are returned.
func Rank(query string, candidates []model.Song, maxDistance, limit int) []model.Song {
	if limit < 1 || len(candidates) == 0 {
		return []model.Song{}
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		d := edlib.LevenshteinDistance(query, c.Title)
		if d >= maxDistance {
			continue
		}
		ranked = append(ranked, scored{song: c, distance: d})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.song.ID, b.song.ID)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]model.Song, len(ranked))
	for i, r := range ranked {
		out[i] = r.song
	}
	return out
}
