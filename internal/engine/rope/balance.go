package rope

import "strings"

// Concatenation never rebalances, so a run of single-character edits can
// degrade the tree toward a list. Rebalance is the explicit escape hatch.

// Rebalance returns a rope with the same text arranged in a height-balanced
// tree. Adjacent small leaves are coalesced up to TargetLeafSize bytes.
// The receiver is unchanged.
func (r Rope) Rebalance() Rope {
	if r.root == nil || r.root.isLeaf() {
		return r
	}

	var leaves []*node
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			leaves = append(leaves, newLeaf(pending.String()))
			pending.Reset()
		}
	}

	r.root.walk(func(s string) bool {
		if len(s) >= TargetLeafSize {
			flush()
			leaves = append(leaves, newLeaf(s))
			return true
		}
		if pending.Len()+len(s) > MaxLeafSize {
			flush()
		}
		pending.WriteString(s)
		return true
	})
	flush()

	return Rope{root: buildBalanced(leaves)}
}

// NeedsRebalance reports whether the tree depth exceeds maxDepth.
// A non-positive maxDepth disables the check.
func (r Rope) NeedsRebalance(maxDepth int) bool {
	return maxDepth > 0 && r.Depth() > maxDepth
}
