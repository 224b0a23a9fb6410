package rope

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// Rope is an immutable rope data structure for efficient text storage.
// Operations return new Rope values; the original is never modified.
// This enables cheap snapshots and thread-safe concurrent read access.
//
// The zero value is an empty rope.
type Rope struct {
	root *node
}

// New creates an empty rope.
func New() Rope {
	return Rope{}
}

// FromString creates a rope from a string, cutting it into leaf-sized
// chunks arranged in a balanced tree.
func FromString(s string) Rope {
	chunks := splitIntoChunks(s)
	leaves := make([]*node, 0, len(chunks))
	for _, c := range chunks {
		leaves = append(leaves, newLeaf(c))
	}
	return Rope{root: buildBalanced(leaves)}
}

// FromSequence builds a rope by concatenating one leaf per string, left
// to right. The result is not balanced: each step wraps the accumulated
// rope as the left child of a new branch.
func FromSequence(ss []string) Rope {
	var root *node
	for _, s := range ss {
		root = concat(root, newLeaf(s))
	}
	return Rope{root: root}
}

// Concat returns a rope representing a followed by b.
func Concat(a, b Rope) Rope {
	return a.Concat(b)
}

// Len returns the number of characters.
func (r Rope) Len() int {
	return r.root.measure().Chars
}

// LineCount returns the number of newline characters. A rope with L
// newlines has L+1 lines.
func (r Rope) LineCount() int {
	return r.root.measure().Lines
}

// Weight returns the aggregated metrics for the entire rope.
func (r Rope) Weight() Weight {
	return r.root.measure()
}

// IsEmpty returns true if the rope contains no text.
func (r Rope) IsEmpty() bool {
	return r.root == nil
}

// Total returns the number of addressable units. For Line this counts
// every newline-terminated line plus a final unterminated line, if any.
func (r Rope) Total(unit Unit) int {
	w := r.root.measure()
	if unit == Char {
		return w.Chars
	}
	if r.root != nil && r.root.lastRune() != '\n' {
		return w.Lines + 1
	}
	return w.Lines
}

// String returns the full text as a string.
// Use at I/O boundaries only; the editing path never needs it.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	r.root.appendTo(&sb)
	return sb.String()
}

// WriteTo implements io.WriterTo, streaming leaves in order.
func (r Rope) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var err error
	r.root.walk(func(s string) bool {
		var n int
		n, err = io.WriteString(w, s)
		total += int64(n)
		return err == nil
	})
	return total, err
}

// Chunks returns an iterator over the leaf texts in order.
func (r Rope) Chunks() iter.Seq[string] {
	return func(yield func(string) bool) {
		r.root.walk(yield)
	}
}

// Concat concatenates two ropes.
// An empty operand yields the other rope unchanged.
func (r Rope) Concat(other Rope) Rope {
	return Rope{root: concat(r.root, other.root)}
}

// Index returns the unit at position i. For Char it is a single
// character; for Line it is the whole line including its terminator.
func (r Rope) Index(i int, unit Unit) (string, error) {
	if err := r.checkIndex(i, unit); err != nil {
		return "", err
	}
	if unit == Char {
		return string(r.root.charAt(i)), nil
	}
	_, rest := split(r.root, i, Line)
	line, _ := split(rest, 1, Line)
	return Rope{root: line}.String(), nil
}

// RuneAt returns the character at offset i.
func (r Rope) RuneAt(i int) (rune, error) {
	if err := r.checkIndex(i, Char); err != nil {
		return 0, err
	}
	return r.root.charAt(i), nil
}

// Split splits the rope so that the left rope holds exactly i units and
// the right rope holds the remainder.
func (r Rope) Split(i int, unit Unit) (Rope, Rope, error) {
	if err := r.checkBound(i, unit); err != nil {
		return Rope{}, Rope{}, err
	}
	left, right := split(r.root, i, unit)
	return Rope{root: left}, Rope{root: right}, nil
}

// Insert inserts text before unit i.
// Returns a new rope; original is unchanged.
func (r Rope) Insert(i int, text string, unit Unit) (Rope, error) {
	return r.InsertRope(i, FromString(text), unit)
}

// InsertRope inserts another rope before unit i.
func (r Rope) InsertRope(i int, other Rope, unit Unit) (Rope, error) {
	if err := r.checkBound(i, unit); err != nil {
		return Rope{}, err
	}
	if other.root == nil {
		return r, nil
	}
	left, right := split(r.root, i, unit)
	return Rope{root: concat(concat(left, other.root), right)}, nil
}

// Delete removes the half-open unit range [i, j).
// Returns a new rope; original is unchanged.
func (r Rope) Delete(i, j int, unit Unit) (Rope, error) {
	if err := r.checkRange(i, j, unit); err != nil {
		return Rope{}, err
	}
	if i == j {
		return r, nil
	}
	left, rest := split(r.root, i, unit)
	_, right := split(rest, j-i, unit)
	return Rope{root: concat(left, right)}, nil
}

// Replace replaces the unit range [i, j) with text.
func (r Rope) Replace(i, j int, text string, unit Unit) (Rope, error) {
	if err := r.checkRange(i, j, unit); err != nil {
		return Rope{}, err
	}
	left, rest := split(r.root, i, unit)
	_, right := split(rest, j-i, unit)
	return Rope{root: concat(concat(left, newReplacement(text)), right)}, nil
}

// Slice returns the text of the unit range [i, j).
func (r Rope) Slice(i, j int, unit Unit) (string, error) {
	if err := r.checkRange(i, j, unit); err != nil {
		return "", err
	}
	_, rest := split(r.root, i, unit)
	mid, _ := split(rest, j-i, unit)
	return Rope{root: mid}.String(), nil
}

// OffsetOfLine returns the character offset at which the given line
// starts. Lines are 0-indexed; passing Total(Line) yields Len().
func (r Rope) OffsetOfLine(line int) (int, error) {
	if err := r.checkBound(line, Line); err != nil {
		return 0, err
	}
	if r.root == nil {
		return 0, nil
	}
	return r.root.offsetOfLine(line), nil
}

// LineAtOffset returns the index of the line containing the character at
// offset. A line's terminator belongs to that line. Offset Len() is
// accepted and reports the last line.
func (r Rope) LineAtOffset(offset int) (int, error) {
	if offset < 0 || offset > r.Len() {
		return 0, fmt.Errorf("%w: offset %d of %d", ErrOutOfRange, offset, r.Len())
	}
	if r.root == nil {
		return 0, nil
	}
	return r.root.newlinesBefore(offset), nil
}

// Depth returns the height of the tree. An empty rope has depth 0 and a
// single leaf has depth 1.
func (r Rope) Depth() int {
	if r.root == nil {
		return 0
	}
	return r.root.height + 1
}

// LeafCount returns the number of leaves in the tree.
func (r Rope) LeafCount() int {
	count := 0
	r.root.walk(func(string) bool {
		count++
		return true
	})
	return count
}

// Equal reports whether two ropes hold the same text.
// This compares content, not structure.
func (r Rope) Equal(other Rope) bool {
	if r.root == other.root {
		return true
	}
	if r.root.measure() != other.root.measure() {
		return false
	}
	return r.String() == other.String()
}

// newReplacement builds the subtree for inserted text.
func newReplacement(text string) *node {
	return FromString(text).root
}

// checkIndex validates an addressable position 0 <= i < Total(unit).
func (r Rope) checkIndex(i int, unit Unit) error {
	total := r.Total(unit)
	if i < 0 || i >= total {
		return fmt.Errorf("%w: %s %d of %d", ErrOutOfRange, unit, i, total)
	}
	return nil
}

// checkBound validates a boundary position 0 <= i <= Total(unit).
func (r Rope) checkBound(i int, unit Unit) error {
	total := r.Total(unit)
	if i < 0 || i > total {
		return fmt.Errorf("%w: %s %d of %d", ErrOutOfRange, unit, i, total)
	}
	return nil
}

// checkRange validates a half-open range within the rope.
func (r Rope) checkRange(i, j int, unit Unit) error {
	total := r.Total(unit)
	if i < 0 || j < i || j > total {
		return fmt.Errorf("%w: %s range [%d, %d) of %d", ErrOutOfRange, unit, i, j, total)
	}
	return nil
}
