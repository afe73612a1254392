package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error constants.
var (
	ErrNoAction  = errors.New("nothing to do: pass -refresh, -file, -id or -q")
	ErrInvalidID = errors.New("invalid song id")
)

// Options holds one invocation of the command-line tool.
type Options struct {
	Refresh bool   // download the feed and rebuild the catalog
	File    string // rebuild the catalog from a local feed file instead
	IDs     []int  // songs to print by id
	Query   string // title to search for
	Count   int    // number of title matches to print, 0 for the configured default
	Detail  bool   // add artist and charter columns
}

// HasAction reports whether the options ask for any work.
func (o *Options) HasAction() bool {
	return o.Refresh || o.File != "" || len(o.IDs) > 0 || strings.TrimSpace(o.Query) != ""
}

// ParseIDs parses a comma or space separated id list such as "11571,11524".
func ParseIDs(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
