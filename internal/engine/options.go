package engine

import "log/slog"

// Default configuration values.
const (
	DefaultMaxUndoEntries = 1000
	DefaultMaxDepth       = 64
)

// Option configures a Document during creation.
type Option func(*Document)

// WithMaxUndoEntries sets the maximum number of undo history entries.
func WithMaxUndoEntries(max int) Option {
	return func(d *Document) {
		if max > 0 {
			d.maxUndoEntries = max
		}
	}
}

// WithMaxDepth sets the rope depth above which an edit rebalances the
// text before publishing. Zero disables rebalancing.
func WithMaxDepth(depth int) Option {
	return func(d *Document) {
		if depth >= 0 {
			d.maxDepth = depth
		}
	}
}

// WithReadOnly sets whether the document rejects edits.
func WithReadOnly(readOnly bool) Option {
	return func(d *Document) {
		d.readOnly = readOnly
	}
}

// WithLogger sets the logger used for publish diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}
