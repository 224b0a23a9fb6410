package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/ropesync/internal/engine/history"
	"github.com/dshills/ropesync/internal/engine/rope"
	"github.com/dshills/ropesync/internal/engine/tracking"
)

// Document is editable text held in a rope whose every accepted edit is
// published to a ledger as a new revision.
//
// Edits are serialized: each one computes the next rope, publishes its
// serialized form and only then replaces the current rope. A failed publish
// leaves the document unchanged.
//
// Insert, Delete, Replace, Undo and Redo are the library editing API. The
// ropesync command's sources replace the whole text through SetText.
type Document struct {
	mu sync.Mutex

	text    rope.Rope
	ledger  *tracking.Ledger
	history *history.History

	maxUndoEntries int
	maxDepth       int
	readOnly       bool
	logger         *slog.Logger
}

// NewDocument creates a document mirroring the ledger's current state.
// The document should be the ledger's only publisher.
func NewDocument(ledger *tracking.Ledger, opts ...Option) *Document {
	d := &Document{
		ledger:         ledger,
		maxUndoEntries: DefaultMaxUndoEntries,
		maxDepth:       DefaultMaxDepth,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.text = rope.FromString(ledger.Current().State)
	d.history = history.New(d.maxUndoEntries)
	return d
}

// Text returns the full document text.
func (d *Document) Text() string {
	return d.Rope().String()
}

// Rope returns an immutable snapshot of the document.
func (d *Document) Rope() rope.Rope {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Len returns the document length in characters.
func (d *Document) Len() int {
	return d.Rope().Len()
}

// LineCount returns the number of newlines in the document.
func (d *Document) LineCount() int {
	return d.Rope().LineCount()
}

// Revision returns the ledger's latest revision.
func (d *Document) Revision() uint64 {
	return d.ledger.Revision()
}

// Insert inserts text before unit i and returns the new revision.
func (d *Document) Insert(ctx context.Context, i int, text string, unit rope.Unit) (uint64, error) {
	return d.edit(ctx, "insert", func(r rope.Rope) (rope.Rope, error) {
		return r.Insert(i, text, unit)
	})
}

// Delete removes the unit range [i, j) and returns the new revision.
func (d *Document) Delete(ctx context.Context, i, j int, unit rope.Unit) (uint64, error) {
	return d.edit(ctx, "delete", func(r rope.Rope) (rope.Rope, error) {
		return r.Delete(i, j, unit)
	})
}

// Replace replaces the unit range [i, j) with text and returns the new
// revision.
func (d *Document) Replace(ctx context.Context, i, j int, text string, unit rope.Unit) (uint64, error) {
	return d.edit(ctx, "replace", func(r rope.Rope) (rope.Rope, error) {
		return r.Replace(i, j, text, unit)
	})
}

// SetText replaces the whole document. Unlike the other edits it does not
// publish when text equals the current content; changed reports whether a
// revision was committed.
func (d *Document) SetText(ctx context.Context, text string) (rev uint64, changed bool, err error) {
	if d.readOnly {
		return 0, false, ErrReadOnly
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, changed, err := d.ledger.PublishIfChanged(ctx, text)
	if err != nil {
		return 0, false, fmt.Errorf("set text: %w", err)
	}
	if !changed {
		return c.Next.Revision, false, nil
	}

	d.history.Push("set", d.text)
	d.text = rope.FromString(text)
	return c.Next.Revision, true, nil
}

// Undo restores the text before the last edit and publishes it.
func (d *Document) Undo(ctx context.Context) (uint64, error) {
	return d.step(ctx, true)
}

// Redo reapplies the last undone edit and publishes it.
func (d *Document) Redo(ctx context.Context) (uint64, error) {
	return d.step(ctx, false)
}

// CanUndo returns true if undo is available.
func (d *Document) CanUndo() bool {
	return d.history.CanUndo()
}

// CanRedo returns true if redo is available.
func (d *Document) CanRedo() bool {
	return d.history.CanRedo()
}

func (d *Document) edit(ctx context.Context, desc string, fn func(rope.Rope) (rope.Rope, error)) (uint64, error) {
	if d.readOnly {
		return 0, ErrReadOnly
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := fn(d.text)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", desc, err)
	}
	next = d.maybeRebalance(next)

	rev, err := d.publish(ctx, next)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", desc, err)
	}

	d.history.Push(desc, d.text)
	d.text = next
	return rev, nil
}

func (d *Document) step(ctx context.Context, undo bool) (uint64, error) {
	if d.readOnly {
		return 0, ErrReadOnly
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	peek, apply, none := d.history.PeekRedo, d.history.Redo, ErrNothingToRedo
	if undo {
		peek, apply, none = d.history.PeekUndo, d.history.Undo, ErrNothingToUndo
	}

	entry, ok := peek()
	if !ok {
		return 0, none
	}

	rev, err := d.publish(ctx, entry.Text())
	if err != nil {
		return 0, err
	}

	next, err := apply(d.text)
	if err != nil {
		return 0, err
	}
	d.text = next
	return rev, nil
}

// publish must be called with d.mu held.
func (d *Document) publish(ctx context.Context, next rope.Rope) (uint64, error) {
	c, err := d.ledger.Publish(ctx, next.String())
	if err != nil {
		return 0, err
	}

	d.logger.Debug("document published",
		"revision", c.Next.Revision,
		"chars", next.Len(),
		"depth", next.Depth(),
	)
	return c.Next.Revision, nil
}

func (d *Document) maybeRebalance(r rope.Rope) rope.Rope {
	if !r.NeedsRebalance(d.maxDepth) {
		return r
	}
	before := r.Depth()
	r = r.Rebalance()
	d.logger.Debug("document rebalanced", "depth_before", before, "depth_after", r.Depth())
	return r
}
