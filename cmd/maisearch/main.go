package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/maisearch/internal/app"
	"github.com/okian/maisearch/internal/cli"
	"github.com/okian/maisearch/internal/config"
	"github.com/okian/maisearch/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		query      = flag.String("q", "", "Title to search for")
		count      = flag.Int("count", 0, "Number of title matches to print (0 uses search_limit)")
		ids        = flag.String("id", "", "Comma separated song ids")
		refresh    = flag.Bool("refresh", false, "Download the song feed and rebuild the catalog")
		file       = flag.String("file", "", "Rebuild the catalog from a local feed file")
		detail     = flag.Bool("detail", false, "Add artist and charter columns")
		configPath = flag.String("config", "", "YAML config file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Usage = func() { cli.ShowHelp(os.Stderr) }
	flag.Parse()

	if *help {
		cli.ShowHelp(os.Stdout)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.Load(ctx, paths...)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := cli.SetupLogging(cfg.LogLevel, *verbose); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		return 1
	}

	parsed, err := cli.ParseIDs(*ids)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 2
	}
	opts := &cli.Options{
		Refresh: *refresh,
		File:    *file,
		IDs:     parsed,
		Query:   *query,
		Count:   *count,
		Detail:  *detail,
	}
	if !opts.HasAction() {
		cli.ShowHelp(os.Stderr)
		return 2
	}

	svc, err := service.Open(ctx, cfg, logger.Get())
	if err != nil {
		logger.Get().Error(ctx, "failed to open catalog", logger.Error(err))
		return 1
	}
	defer svc.Stop()

	if err := cli.Run(ctx, svc, opts, os.Stdout); err != nil {
		logger.Get().Error(ctx, "maisearch failed", logger.Error(err))
		return 1
	}
	return 0
}
