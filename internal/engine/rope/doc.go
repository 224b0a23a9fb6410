// Package rope provides an immutable rope data structure for efficient text storage and manipulation.
//
// A rope is a binary tree where leaf nodes contain text chunks and branch
// nodes cache the weight of their left subtree: its character count and
// newline count. Positions are addressed either by character (Unicode code
// point) or by line, and every lookup descends by comparing against the
// cached weights instead of recomputing lengths.
//
// Key features:
//   - Immutable operations return new ropes; originals are never modified
//   - Unmodified subtrees are shared between ropes, so snapshots are cheap
//   - Character and line addressing through the same split primitive
//   - Thread-safe for concurrent read access
//
// Concatenation does not rebalance. A long series of small edits can
// degrade lookups toward O(n); call [Rope.Rebalance] when
// [Rope.NeedsRebalance] reports it.
//
// Basic usage:
//
//	r := rope.FromString("hello world")
//	r, _ = r.Insert(5, ",", rope.Char)      // "hello, world"
//	r, _ = r.Delete(0, 7, rope.Char)        // "world"
//	text := r.String()                      // "world"
package rope
