// Package best keeps the strongest performance records of a player in
// fixed-capacity, rank-ordered lists.
package best

import (
	"cmp"
	"errors"
	"slices"
	"strings"

	"github.com/okian/maisearch/internal/domain/model"
)

// ErrInvalidCapacity is returned for lists that could never hold a record.
var ErrInvalidCapacity = errors.New("best list capacity must be positive")

// Compare orders records by rank: it returns a positive number when a ranks
// above b, negative when below and zero when the two are tied.
//
// Keys, in order: rating (higher first), level tier (higher first),
// achievement (higher first), title (lexicographically smaller first).
func Compare(a, b model.Record) int {
	if c := cmp.Compare(a.Rating, b.Rating); c != 0 {
		return c
	}
	if c := cmp.Compare(a.LevelIndex, b.LevelIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Achievement, b.Achievement); c != 0 {
		return c
	}
	return strings.Compare(b.Title, a.Title)
}

// List holds at most Cap() records, best first. A List is not safe for
// concurrent use; it belongs to the single report that builds it.
type List struct {
	data     []model.Record
	capacity int
}

// New creates an empty list that retains at most capacity records.
func New(capacity int) (*List, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &List{data: make([]model.Record, 0, capacity+1), capacity: capacity}, nil
}

// Push offers r to the list and reports whether it was retained. When the
// list is full, r must rank strictly above the weakest record to get in; the
// weakest record is then evicted.
func (l *List) Push(r model.Record) bool {
	if len(l.data) >= l.capacity && Compare(r, l.data[len(l.data)-1]) <= 0 {
		return false
	}
	l.data = append(l.data, r)
	slices.SortStableFunc(l.data, func(a, b model.Record) int { return Compare(b, a) })
	if len(l.data) > l.capacity {
		l.data = l.data[:l.capacity]
	}
	return true
}

// Pop removes and returns the weakest retained record.
func (l *List) Pop() (model.Record, bool) {
	if len(l.data) == 0 {
		return model.Record{}, false
	}
	last := l.data[len(l.data)-1]
	l.data = l.data[:len(l.data)-1]
	return last, true
}

// Len returns the number of retained records.
func (l *List) Len() int { return len(l.data) }

// Cap returns the list capacity.
func (l *List) Cap() int { return l.capacity }

// At returns the record at rank position i (0 is best). It panics when i is
// out of range, like a slice index.
func (l *List) At(i int) model.Record { return l.data[i] }

// Records returns a copy of the retained records, best first.
func (l *List) Records() []model.Record { return slices.Clone(l.data) }

// Rating sums the ratings of the retained records.
func (l *List) Rating() int {
	total := 0
	for _, r := range l.data {
		total += r.Rating
	}
	return total
}
