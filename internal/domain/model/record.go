package model

import "fmt"

// LevelIndex identifies a chart difficulty tier. Higher values are harder tiers.
type LevelIndex int

// Difficulty tiers in catalog order.
const (
	Basic LevelIndex = iota
	Advanced
	Expert
	Master
	ReMaster
)

var levelLabels = [...]string{"Basic", "Advanced", "Expert", "Master", "Re:MASTER"}

// String returns the display label for the tier.
func (l LevelIndex) String() string {
	if l < Basic || l > ReMaster {
		return fmt.Sprintf("LevelIndex(%d)", int(l))
	}
	return levelLabels[l]
}

// ParseLevelLabel maps a display label back to its tier.
func ParseLevelLabel(label string) (LevelIndex, bool) {
	for i, l := range levelLabels {
		if l == label {
			return LevelIndex(i), true
		}
	}
	return 0, false
}

// Record is one scored performance on a chart. Records are built once by the
// caller and treated as immutable afterwards.
type Record struct {
	SongID      int        `json:"song_id"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	DS          float64    `json:"ds"`
	Achievement float64    `json:"achievements"`
	Level       string     `json:"level"`
	LevelIndex  LevelIndex `json:"level_index"`
	Rating      int        `json:"ra"`
	Rate        string     `json:"rate"`
	FC          string     `json:"fc"`
	FS          string     `json:"fs"`
	DXScore     int        `json:"dxScore"`
}

// String renders a one-line summary used by logs and the CLI.
func (r Record) String() string {
	return fmt.Sprintf("%s [%s]\t%.1f\t%s\t%.4f%%\t%d", r.Title, r.Type, r.DS, r.LevelIndex, r.Achievement, r.Rating)
}
