// Package feed loads the bulk music data feed from a remote endpoint, a local
// file or the last good payload cached on disk.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/pkg/logger"
)

// Sentinel kinds for feed errors.
var (
	ErrFetch     = errors.New("feed fetch failed")
	ErrMalformed = errors.New("feed malformed")
	ErrNoData    = errors.New("no feed data available")
)

// wireSong is one feed entry. Ids arrive as strings ("8") but numbers are
// accepted too.
type wireSong struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Type      string          `json:"type"`
	DS        []float64       `json:"ds"`
	Level     []string        `json:"level"`
	CIDs      []int           `json:"cids"`
	Charts    []model.Chart   `json:"charts"`
	BasicInfo model.BasicInfo `json:"basic_info"`
}

func parseID(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, errors.New("missing id")
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	}
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("id %s: %w", s, err)
	}
	return id, nil
}

// Decode parses a feed payload. The payload must be a JSON array; entries
// that fail to decode are logged and skipped.
func Decode(ctx context.Context, log logger.Logger, data []byte) ([]model.Song, int, error) {
	if log == nil {
		log = logger.Nop()
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	songs := make([]model.Song, 0, len(raw))
	skipped := 0
	for i, item := range raw {
		var w wireSong
		if err := json.Unmarshal(item, &w); err != nil {
			skipped++
			log.Warn(ctx, "skipping undecodable feed entry", logger.Int("index", i), logger.Error(err))
			continue
		}
		id, err := parseID(w.ID)
		if err != nil {
			skipped++
			log.Warn(ctx, "skipping feed entry with bad id", logger.Int("index", i), logger.String("title", w.Title), logger.Error(err))
			continue
		}
		songs = append(songs, model.Song{
			ID:        id,
			Title:     w.Title,
			Type:      w.Type,
			DS:        w.DS,
			Level:     w.Level,
			CIDs:      w.CIDs,
			Charts:    w.Charts,
			BasicInfo: w.BasicInfo,
		})
	}
	return songs, skipped, nil
}
