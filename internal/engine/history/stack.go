package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/ropesync/internal/engine/rope"
)

// DefaultMaxEntries is the default undo depth.
const DefaultMaxEntries = 1000

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Entry describes one undoable step.
type Entry struct {
	Description string
	Timestamp   time.Time

	// text is the rope on the other side of the step.
	text rope.Rope
}

// Text returns the rope this entry restores.
func (e Entry) Text() rope.Rope {
	return e.text
}

// History manages undo/redo stacks of rope snapshots.
type History struct {
	mu sync.Mutex

	undoStack []Entry
	redoStack []Entry

	maxEntries int
}

// New creates a history holding at most maxEntries undo steps.
func New(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		maxEntries: maxEntries,
	}
}

// Push records before as the state preceding an edit described by desc.
// Clears the redo stack.
func (h *History) Push(desc string, before rope.Rope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = append(h.undoStack, Entry{
		Description: desc,
		Timestamp:   time.Now(),
		text:        before,
	})
	h.redoStack = nil

	if excess := len(h.undoStack) - h.maxEntries; excess > 0 {
		h.undoStack = h.undoStack[excess:]
	}
}

// Undo pops the last step and returns the rope to restore. current is
// kept so Redo can return to it.
func (h *History) Undo(current rope.Rope) (rope.Rope, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return rope.Rope{}, ErrNothingToUndo
	}

	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, Entry{
		Description: entry.Description,
		Timestamp:   time.Now(),
		text:        current,
	})
	return entry.text, nil
}

// Redo reapplies the last undone step and returns the rope to restore.
func (h *History) Redo(current rope.Rope) (rope.Rope, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return rope.Rope{}, ErrNothingToRedo
	}

	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, Entry{
		Description: entry.Description,
		Timestamp:   time.Now(),
		text:        current,
	})
	return entry.text, nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo operations available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo operations available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// PeekUndo returns the entry Undo would restore.
func (h *History) PeekUndo() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) == 0 {
		return Entry{}, false
	}
	return h.undoStack[len(h.undoStack)-1], true
}

// PeekRedo returns the entry Redo would restore.
func (h *History) PeekRedo() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redoStack) == 0 {
		return Entry{}, false
	}
	return h.redoStack[len(h.redoStack)-1], true
}

// Clear removes all history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undoStack = nil
	h.redoStack = nil
}
