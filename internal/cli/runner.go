package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/maisearch/internal/adapters/feed"
	service "github.com/okian/maisearch/internal/app"
	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/pkg/logger"
)

// Catalog is the part of the service the tool drives.
type Catalog interface {
	Refresh(ctx context.Context) (service.RefreshResult, error)
	ReplaceCatalog(ctx context.Context, res feed.Result) (service.RefreshResult, error)
	SongsByID(ctx context.Context, ids []int) ([]model.Song, error)
	SearchTitle(ctx context.Context, query string, limit int) ([]model.Song, error)
}

// Run executes one invocation: an optional rebuild first, then id lookups,
// then a title search. A lookup that matches nothing prints a warning and is
// not an error; store and feed failures are.
func Run(ctx context.Context, cat Catalog, opts *Options, out io.Writer) error {
	if !opts.HasAction() {
		return ErrNoAction
	}
	log := logger.Named("cli")

	if opts.File != "" || opts.Refresh {
		start := time.Now()
		res, err := rebuild(ctx, cat, opts)
		if err != nil {
			return err
		}
		log.Info(ctx, "catalog rebuilt",
			logger.String("source", string(res.Source)),
			logger.Int("indexed", res.Report.Indexed),
			logger.Int("skipped", res.Report.Skipped+res.FeedSkip),
			logger.Duration("took", time.Since(start)))
		if _, err := fmt.Fprintf(out, "catalog rebuilt from %s: %d songs indexed, %d skipped\n",
			res.Source, res.Report.Indexed, res.Report.Skipped+res.FeedSkip); err != nil {
			return err
		}
	}

	if len(opts.IDs) > 0 {
		songs, err := cat.SongsByID(ctx, opts.IDs)
		if err != nil {
			return fmt.Errorf("lookup ids: %w", err)
		}
		if err := printSongs(out, songs, opts.Detail, "no song with id "+joinIDs(opts.IDs)); err != nil {
			return err
		}
	}

	if q := strings.TrimSpace(opts.Query); q != "" {
		songs, err := cat.SearchTitle(ctx, q, opts.Count)
		if err != nil {
			return fmt.Errorf("search %q: %w", q, err)
		}
		if err := printSongs(out, songs, opts.Detail, fmt.Sprintf("no song matched %q", q)); err != nil {
			return err
		}
	}
	return nil
}

func rebuild(ctx context.Context, cat Catalog, opts *Options) (service.RefreshResult, error) {
	if opts.File != "" {
		res, err := feed.LoadFile(ctx, opts.File, logger.Named("feed"))
		if err != nil {
			return service.RefreshResult{}, fmt.Errorf("load %s: %w", opts.File, err)
		}
		return cat.ReplaceCatalog(ctx, res)
	}
	return cat.Refresh(ctx)
}

func printSongs(out io.Writer, songs []model.Song, detail bool, warning string) error {
	if len(songs) == 0 {
		logger.Named("cli").Warn(context.Background(), warning)
		_, err := fmt.Fprintln(out, "warning: "+warning)
		return err
	}
	return WriteTable(out, songs, detail)
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
