package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/textnorm"
	"github.com/okian/maisearch/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ Store = (*SQLStore)(nil)

// SQLStore keeps the catalog in a SQLite database.
type SQLStore struct {
	db   *gorm.DB
	opts options
}

// OpenSQLStore opens (creating if needed) the database at path and migrates
// the songs table. Use ":memory:" for a throwaway database.
func OpenSQLStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	o := newOptions(opts)
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, unavailable("create db dir", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, unavailable("open sqlite", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, unavailable("sql handle", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.WithContext(ctx).AutoMigrate(&songRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, unavailable("auto migrate", err)
	}
	o.log.Debug(ctx, "catalog database ready", logger.String("path", path))
	return &SQLStore{db: db, opts: o}, nil
}

// LookupByID implements Store.
func (s *SQLStore) LookupByID(ctx context.Context, id int) (model.Song, bool, error) {
	defer observeLookup("id", time.Now())
	var row songRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Song{}, false, nil
	}
	if err != nil {
		return model.Song{}, false, unavailable("lookup id", err)
	}
	song, err := decodeRow(row)
	if err != nil {
		return model.Song{}, false, err
	}
	return song, true, nil
}

// LookupByToken implements Store.
func (s *SQLStore) LookupByToken(ctx context.Context, token string) ([]model.Song, error) {
	defer observeLookup("token", time.Now())
	folded := textnorm.Fold(token)
	if folded == "" {
		return nil, nil
	}
	var rows []songRow
	err := s.db.WithContext(ctx).
		Where(`keyword LIKE ? ESCAPE '\'`, "%"+escapeLike(folded)+"%").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("lookup token", err)
	}
	songs := make([]model.Song, 0, len(rows))
	for _, row := range rows {
		song, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		// LIKE folds ASCII case only; confirm the match on the folded keyword.
		if strings.Contains(row.Keyword, folded) {
			songs = append(songs, song)
		}
	}
	return songs, nil
}

// Replace implements Store.
func (s *SQLStore) Replace(ctx context.Context, songs []model.Song) (RebuildReport, error) {
	start := time.Now()
	entries, rep := prepare(ctx, s.opts.log, songs)
	rows := make([]songRow, 0, len(entries))
	for _, e := range entries {
		row, err := encodeSong(e)
		if err != nil {
			rep.Invalid++
			rep.Skipped++
			rep.Indexed--
			s.opts.log.Warn(ctx, "skipping unencodable song", logger.Int("id", e.song.ID), logger.Error(err))
			continue
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&songRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, s.opts.batchSize).Error
	})
	rep.Took = time.Since(start)
	observeRebuild(start, rep.Indexed, err)
	if err != nil {
		return rep, unavailable("replace", err)
	}
	s.opts.log.Info(ctx, "catalog rebuilt",
		logger.Int("indexed", rep.Indexed),
		logger.Int("skipped", rep.Skipped),
		logger.Duration("took", rep.Took))
	return rep, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&songRow{}).Count(&n).Error; err != nil {
		return 0, unavailable("count", err)
	}
	return int(n), nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return sqlDB.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
