package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/okian/maisearch/internal/domain/model"
)

// songRow is the persisted layout of a song. Only id and keyword are
// searchable; the JSON columns are stored and returned verbatim.
type songRow struct {
	ID        int    `gorm:"primaryKey;autoIncrement:false"`
	Keyword   string `gorm:"index:idx_songs_keyword;not null"`
	Title     string `gorm:"not null"`
	SongType  string
	DS        string `gorm:"column:ds"`
	Level     string
	CIDs      string `gorm:"column:cids"`
	Charts    string
	BasicInfo string
}

func (songRow) TableName() string { return "songs" }

func encodeSong(e entry) (songRow, error) {
	row := songRow{
		ID:       e.song.ID,
		Keyword:  e.keyword,
		Title:    e.song.Title,
		SongType: e.song.Type,
	}
	fields := []struct {
		dst *string
		v   any
	}{
		{&row.DS, e.song.DS},
		{&row.Level, e.song.Level},
		{&row.CIDs, e.song.CIDs},
		{&row.Charts, e.song.Charts},
		{&row.BasicInfo, e.song.BasicInfo},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return songRow{}, fmt.Errorf("encode song %d: %w", e.song.ID, err)
		}
		*f.dst = string(b)
	}
	return row, nil
}

func decodeRow(row songRow) (model.Song, error) {
	s := model.Song{ID: row.ID, Title: row.Title, Type: row.SongType}
	fields := []struct {
		name string
		raw  string
		dst  any
	}{
		{"ds", row.DS, &s.DS},
		{"level", row.Level, &s.Level},
		{"cids", row.CIDs, &s.CIDs},
		{"charts", row.Charts, &s.Charts},
		{"basic_info", row.BasicInfo, &s.BasicInfo},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return model.Song{}, fmt.Errorf("%w: song %d field %s: %w", ErrMalformed, row.ID, f.name, err)
		}
	}
	return s, nil
}
