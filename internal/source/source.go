// Package source produces document text for the sync server: a demo
// counter that re-renders on a timer, or a file whose content is reloaded
// whenever it changes on disk.
package source

import (
	"context"
	"errors"
)

// ErrNoSink is returned when a source is created without a sink.
var ErrNoSink = errors.New("source: nil sink")

// Sink receives complete replacement texts. engine.Document implements it.
type Sink interface {
	SetText(ctx context.Context, text string) (rev uint64, changed bool, err error)
}

// Source feeds a sink until ctx is done.
type Source interface {
	Run(ctx context.Context) error
}
