package rope

import (
	"strings"
	"unicode/utf8"
)

// node is a persistent rope node: either a leaf holding text or a branch
// holding two non-nil children. Nodes are never mutated after
// construction, so subtrees are freely shared between ropes.
//
// For a leaf, weight is the metrics of its own text. For a branch, weight
// is the metrics of the entire left subtree.
type node struct {
	text   string
	left   *node
	right  *node
	weight Weight
	height int
}

// newLeaf creates a leaf for s, or nil when s is empty.
func newLeaf(s string) *node {
	if len(s) == 0 {
		return nil
	}
	return &node{text: s, weight: ComputeWeight(s)}
}

// newBranch wraps two non-empty subtrees. The weight is derived from the
// left operand's totals.
func newBranch(left, right *node) *node {
	return &node{
		left:   left,
		right:  right,
		weight: left.measure(),
		height: max(left.height, right.height) + 1,
	}
}

// isLeaf reports whether n holds text directly.
func (n *node) isLeaf() bool {
	return n.left == nil
}

// measure returns the metrics of the whole subtree by walking the right
// spine. Cost is O(depth).
func (n *node) measure() Weight {
	var total Weight
	for n != nil {
		total = total.Add(n.weight)
		if n.isLeaf() {
			break
		}
		n = n.right
	}
	return total
}

// concat joins two subtrees. An empty operand yields the other operand
// unchanged.
func concat(left, right *node) *node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return newBranch(left, right)
}

// split partitions n so that the left result holds exactly i units.
// The caller guarantees 0 <= i <= total units of n.
func split(n *node, i int, unit Unit) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if i <= 0 {
		return nil, n
	}

	if n.isLeaf() {
		var off int
		if unit == Line {
			off = byteOffsetAfterLine(n.text, i)
		} else {
			off = byteOffsetOfChar(n.text, i)
		}
		if off == 0 {
			return nil, n
		}
		if off == len(n.text) {
			return n, nil
		}
		return newLeaf(n.text[:off]), newLeaf(n.text[off:])
	}

	w := n.weight.of(unit)

	// A line split at exactly w may still land inside the left subtree
	// when the left subtree ends with a partial line.
	if i < w || (unit == Line && i == w) {
		ll, lr := split(n.left, i, unit)
		return ll, concat(lr, n.right)
	}
	if i > w {
		rl, rr := split(n.right, i-w, unit)
		return concat(n.left, rl), rr
	}
	return n.left, n.right
}

// charAt returns the code point at character offset i.
func (n *node) charAt(i int) rune {
	for !n.isLeaf() {
		if i < n.weight.Chars {
			n = n.left
		} else {
			i -= n.weight.Chars
			n = n.right
		}
	}
	off := byteOffsetOfChar(n.text, i)
	r, _ := utf8.DecodeRuneInString(n.text[off:])
	return r
}

// offsetOfLine returns the character offset at which line i starts.
func (n *node) offsetOfLine(i int) int {
	offset := 0
	for !n.isLeaf() {
		if i <= n.weight.Lines {
			n = n.left
		} else {
			i -= n.weight.Lines
			offset += n.weight.Chars
			n = n.right
		}
	}
	b := byteOffsetAfterLine(n.text, i)
	return offset + utf8.RuneCountInString(n.text[:b])
}

// newlinesBefore counts newlines among the first off characters.
func (n *node) newlinesBefore(off int) int {
	lines := 0
	for !n.isLeaf() {
		if off <= n.weight.Chars {
			n = n.left
		} else {
			off -= n.weight.Chars
			lines += n.weight.Lines
			n = n.right
		}
	}
	return lines + newlinesInPrefix(n.text, off)
}

// lastRune returns the final code point of a non-empty subtree.
func (n *node) lastRune() rune {
	for !n.isLeaf() {
		n = n.right
	}
	r, _ := utf8.DecodeLastRuneInString(n.text)
	return r
}

// appendTo appends all text in this subtree to the builder.
func (n *node) appendTo(sb *strings.Builder) {
	for n != nil {
		if n.isLeaf() {
			sb.WriteString(n.text)
			return
		}
		n.left.appendTo(sb)
		n = n.right
	}
}

// walk calls yield for every leaf in order until yield returns false.
func (n *node) walk(yield func(string) bool) bool {
	for n != nil {
		if n.isLeaf() {
			return yield(n.text)
		}
		if !n.left.walk(yield) {
			return false
		}
		n = n.right
	}
	return true
}

// buildBalanced builds a height-balanced tree from leaves in order.
func buildBalanced(leaves []*node) *node {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	}
	mid := len(leaves) / 2
	return newBranch(buildBalanced(leaves[:mid]), buildBalanced(leaves[mid:]))
}
