// Package cli implements the maisearch command-line tool: catalog rebuilds,
// id lookups and title searches printed as plain tables.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/maisearch/pkg/logger"
)

// SetupLogging sends logs to stderr so stdout carries only the tables.
func SetupLogging(level string, verbose bool) error {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `maisearch
=========

Look up maimai songs by id or fuzzy title.

Usage:
  maisearch [options]

Options:
  -q string
        Title to search for (Simplified Chinese is retried as Traditional)
  -count int
        Number of title matches to print (default: search_limit from config)
  -id string
        Comma separated song ids, e.g. 11571,11524
  -refresh
        Download the song feed and rebuild the catalog first
  -file string
        Rebuild the catalog from a local feed JSON file first
  -detail
        Add artist and charter columns
  -config string
        YAML config file (default: $MAISEARCH_CONFIG)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  maisearch -refresh
  maisearch -q 消失 -count 5
  maisearch -id 11571,11524 -detail
`)
}
