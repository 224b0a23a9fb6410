package engine

import (
	"errors"

	"github.com/dshills/ropesync/internal/engine/history"
	"github.com/dshills/ropesync/internal/engine/rope"
)

// Errors returned by document operations.
var (
	// ErrOutOfRange indicates a position is outside the document.
	ErrOutOfRange = rope.ErrOutOfRange

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = history.ErrNothingToUndo

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = history.ErrNothingToRedo

	// ErrReadOnly indicates an edit was attempted on a read-only document.
	ErrReadOnly = errors.New("document is read-only")
)
