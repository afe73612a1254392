// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSong is returned by Validate for songs that cannot be indexed.
var ErrInvalidSong = errors.New("invalid song")

// Song is one catalog entry. The per-chart slices (DS, Level, Charts and,
// when present, CIDs) are parallel: index i describes the i-th chart.
type Song struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	DS        []float64 `json:"ds"`
	Level     []string  `json:"level"`
	CIDs      []int     `json:"cids"`
	Charts    []Chart   `json:"charts"`
	BasicInfo BasicInfo `json:"basic_info"`
}

// Chart is the structural metadata of one playable difficulty.
type Chart struct {
	Notes   []int  `json:"notes"`   // tap, hold, slide, touch, break
	Charter string `json:"charter"` // chart author
}

// BasicInfo carries descriptive song attributes.
type BasicInfo struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Genre       string `json:"genre"`
	BPM         int    `json:"bpm"`
	ReleaseDate string `json:"release_date"`
	From        string `json:"from"`
	IsNew       bool   `json:"is_new"`
}

// Validate checks the invariants the catalog relies on.
func (s Song) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("%w: id %d is not positive", ErrInvalidSong, s.ID)
	}
	if len(s.DS) != len(s.Level) {
		return fmt.Errorf("%w: song %d has %d difficulty constants and %d level labels", ErrInvalidSong, s.ID, len(s.DS), len(s.Level))
	}
	if len(s.Charts) != len(s.DS) {
		return fmt.Errorf("%w: song %d has %d charts and %d difficulty constants", ErrInvalidSong, s.ID, len(s.Charts), len(s.DS))
	}
	if len(s.CIDs) != 0 && len(s.CIDs) != len(s.DS) {
		return fmt.Errorf("%w: song %d has %d chart ids and %d difficulty constants", ErrInvalidSong, s.ID, len(s.CIDs), len(s.DS))
	}
	return nil
}

// ChartCount returns the number of playable charts.
func (s Song) ChartCount() int { return len(s.DS) }

// ChartDS returns the difficulty constant for a level, if the song has that chart.
func (s Song) ChartDS(level LevelIndex) (float64, bool) {
	i := int(level)
	if i < 0 || i >= len(s.DS) {
		return 0, false
	}
	return s.DS[i], true
}
