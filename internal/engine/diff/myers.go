package diff

import "slices"

// edit is a single step of a Myers edit path.
type edit struct {
	kind     Kind
	oldIndex int
	newIndex int
}

// myers implements the Myers shortest edit script algorithm over tokens.
// The trace keeps only the live diagonals of each round, so memory is
// quadratic in the edit distance rather than in the input size.
func myers[T comparable](a, b []T) []edit {
	n, m := len(a), len(b)

	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		edits := make([]edit, m)
		for i := range edits {
			edits[i] = edit{kind: Insert, newIndex: i}
		}
		return edits
	case m == 0:
		edits := make([]edit, n)
		for i := range edits {
			edits[i] = edit{kind: Delete, oldIndex: i}
		}
		return edits
	}

	maxD := n + m
	offset := maxD + 1 // v[k] lives at v[offset+k] for k in [-maxD-1, maxD+1]
	v := make([]int, 2*maxD+3)

	var trace [][]int
	for d := 0; d <= maxD; d++ {
		// Diagonals -d-1..d+1 as they stood before this round.
		trace = append(trace, slices.Clone(v[offset-d-1:offset+d+2]))

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k

			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x

			if x >= n && y >= m {
				return backtrack(trace, n, m)
			}
		}
	}
	return nil
}

// backtrack walks the trace from (n, m) to the origin.
func backtrack(trace [][]int, n, m int) []edit {
	x, y := n, m
	var edits []edit

	for d := len(trace) - 1; d >= 0; d-- {
		w := trace[d]
		at := func(k int) int { return w[k+d+1] }

		k := x - y
		var prevK int
		if k == -d || (k != d && at(k-1) < at(k+1)) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := at(prevK)
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			edits = append(edits, edit{kind: Retain, oldIndex: x, newIndex: y})
		}

		if d > 0 {
			if x > prevX {
				x--
				edits = append(edits, edit{kind: Delete, oldIndex: x})
			} else {
				y--
				edits = append(edits, edit{kind: Insert, newIndex: y})
			}
		}
	}

	slices.Reverse(edits)
	return edits
}
