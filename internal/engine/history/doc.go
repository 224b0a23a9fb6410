// Package history provides undo/redo for rope-backed documents.
//
// Ropes are persistent, so an undo entry is simply the rope as it was
// before an edit. Entries share unmodified subtrees with the live text and
// cost little more than the edited nodes.
//
//	h := history.New(1000) // Max 1000 undo entries
//
//	h.Push("insert", before)
//	prev, err := h.Undo(current)
//	next, err := h.Redo(prev)
//
// Pushing a new entry clears the redo stack.
package history
