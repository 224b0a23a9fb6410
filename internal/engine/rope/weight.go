package rope

import "unicode/utf8"

// Unit selects how rope positions are counted.
type Unit uint8

const (
	// Char counts Unicode code points.
	Char Unit = iota

	// Line counts newline-terminated lines. A line includes its
	// terminator, except for a final line that has none.
	Line
)

// String returns a human-readable name for the unit.
func (u Unit) String() string {
	switch u {
	case Char:
		return "char"
	case Line:
		return "line"
	default:
		return "unknown"
	}
}

// Weight holds the aggregated metrics of a text span.
// A branch caches the Weight of its left subtree; a leaf caches its own.
type Weight struct {
	// Chars is the number of code points.
	Chars int

	// Lines is the number of newline characters.
	Lines int
}

// Add combines two weights.
func (w Weight) Add(other Weight) Weight {
	return Weight{Chars: w.Chars + other.Chars, Lines: w.Lines + other.Lines}
}

// of returns the count for the given unit.
func (w Weight) of(unit Unit) int {
	if unit == Line {
		return w.Lines
	}
	return w.Chars
}

// ComputeWeight calculates the metrics of a string.
func ComputeWeight(s string) Weight {
	var w Weight
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c == '\n' {
				w.Lines++
			}
			i++
		} else {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
		}
		w.Chars++
	}
	return w
}

// byteOffsetOfChar returns the byte offset of the n-th code point in s.
// n may equal the number of code points, which yields len(s).
func byteOffsetOfChar(s string, n int) int {
	if n <= 0 {
		return 0
	}
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// byteOffsetAfterLine returns the byte offset just past the n-th newline
// in s. If s has fewer than n newlines, len(s) is returned.
func byteOffsetAfterLine(s string, n int) int {
	if n <= 0 {
		return 0
	}
	count := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			count++
			if count == n {
				return i + 1
			}
		}
	}
	return len(s)
}

// newlinesInPrefix counts newlines among the first n code points of s.
func newlinesInPrefix(s string, n int) int {
	lines, count := 0, 0
	for _, r := range s {
		if count == n {
			break
		}
		if r == '\n' {
			lines++
		}
		count++
	}
	return lines
}
