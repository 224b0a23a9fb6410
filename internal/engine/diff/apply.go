package diff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/ropesync/internal/engine/rope"
)

// Apply runs ops against base. Retain copies units at the cursor, Delete
// advances the cursor and Insert appends text without moving it. Base text
// past the final op is dropped. ErrMalformedPatch is returned if the cursor
// would pass the end of base.
func Apply(base string, ops []Op, g Granularity) (string, error) {
	switch g {
	case Char:
		return applyChars(base, ops)
	case Line:
		return applyLines(base, ops)
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownGranularity, g)
	}
}

func applyChars(base string, ops []Op) (string, error) {
	var out strings.Builder
	out.Grow(len(base))

	pos := 0
	for i, op := range ops {
		switch op.Kind {
		case Insert:
			out.WriteString(op.Text)
		case Retain, Delete:
			end, ok := advanceRunes(base, pos, op.N)
			if !ok {
				return "", overrun(i, op, utf8.RuneCountInString(base))
			}
			if op.Kind == Retain {
				out.WriteString(base[pos:end])
			}
			pos = end
		default:
			return "", fmt.Errorf("%w: op %d has kind %d", ErrMalformedPatch, i, op.Kind)
		}
	}
	return out.String(), nil
}

// advanceRunes returns the byte offset n runes after pos.
func advanceRunes(s string, pos, n int) (int, bool) {
	if n < 0 {
		return pos, false
	}
	for ; n > 0; n-- {
		if pos >= len(s) {
			return pos, false
		}
		_, size := utf8.DecodeRuneInString(s[pos:])
		pos += size
	}
	return pos, true
}

func applyLines(base string, ops []Op) (string, error) {
	lines := rope.SplitLines(base)

	var out strings.Builder
	out.Grow(len(base))

	cur := 0
	for i, op := range ops {
		switch op.Kind {
		case Insert:
			out.WriteString(op.Text)
		case Retain, Delete:
			if op.N < 0 || cur+op.N > len(lines) {
				return "", overrun(i, op, len(lines))
			}
			if op.Kind == Retain {
				for _, line := range lines[cur : cur+op.N] {
					out.WriteString(line)
				}
			}
			cur += op.N
		default:
			return "", fmt.Errorf("%w: op %d has kind %d", ErrMalformedPatch, i, op.Kind)
		}
	}
	return out.String(), nil
}

// ApplyRope runs ops against a rope, sharing retained subtrees with base
// instead of copying text. The result is not rebalanced.
func ApplyRope(base rope.Rope, ops []Op, g Granularity) (rope.Rope, error) {
	var out rope.Rope
	rest := base
	for i, op := range ops {
		switch op.Kind {
		case Insert:
			out = out.Concat(rope.FromString(op.Text))
		case Retain, Delete:
			head, tail, err := rest.Split(op.N, g)
			if err != nil {
				return rope.Rope{}, overrun(i, op, base.Total(g))
			}
			if op.Kind == Retain {
				out = out.Concat(head)
			}
			rest = tail
		default:
			return rope.Rope{}, fmt.Errorf("%w: op %d has kind %d", ErrMalformedPatch, i, op.Kind)
		}
	}
	return out, nil
}

func overrun(i int, op Op, total int) error {
	return fmt.Errorf("%w: op %d %s passes end of base (%d units)", ErrMalformedPatch, i, op, total)
}
