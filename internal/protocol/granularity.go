package protocol

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/dshills/ropesync/internal/engine/diff"
)

// Query parameters selecting the diff granularity at connect time.
const (
	QueryLines       = "lines"
	QueryGranularity = "granularity"
)

// GranularityFromQuery reads the granularity a client asked for. Either
// lines=true or granularity=line selects line diffs; the default is
// character diffs.
func GranularityFromQuery(q url.Values) (diff.Granularity, error) {
	if v := q.Get(QueryGranularity); v != "" {
		return diff.ParseGranularity(v)
	}
	if v := q.Get(QueryLines); v != "" {
		lines, err := strconv.ParseBool(v)
		if err != nil {
			return diff.Char, fmt.Errorf("%w: lines=%q", diff.ErrUnknownGranularity, v)
		}
		if lines {
			return diff.Line, nil
		}
	}
	return diff.Char, nil
}

// WithGranularity returns u with the granularity query parameter set.
func WithGranularity(u *url.URL, g diff.Granularity) *url.URL {
	out := *u
	q := out.Query()
	q.Del(QueryLines)
	q.Set(QueryGranularity, g.String())
	out.RawQuery = q.Encode()
	return &out
}
