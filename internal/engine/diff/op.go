package diff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/ropesync/internal/engine/rope"
)

// Granularity selects the unit diffs are computed and applied in.
type Granularity = rope.Unit

const (
	// Char diffs by Unicode code point.
	Char = rope.Char
	// Line diffs by terminator-inclusive line.
	Line = rope.Line
)

// ParseGranularity maps a name such as "char" or "lines" to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "char", "chars", "character", "characters":
		return Char, nil
	case "line", "lines":
		return Line, nil
	default:
		return Char, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

// Kind identifies what an Op does to the base text.
type Kind uint8

const (
	// Retain copies N units from the base text.
	Retain Kind = iota
	// Delete skips N units of the base text.
	Delete
	// Insert appends Text without consuming base text.
	Insert
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case Retain:
		return "retain"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	default:
		return "unknown"
	}
}

// Op is one step of an edit script.
type Op struct {
	Kind Kind
	// N is the unit count for Retain and Delete.
	N int
	// Text is the literal for Insert.
	Text string
}

// RetainOp returns an op that keeps n units.
func RetainOp(n int) Op { return Op{Kind: Retain, N: n} }

// DeleteOp returns an op that drops n units.
func DeleteOp(n int) Op { return Op{Kind: Delete, N: n} }

// InsertOp returns an op that adds text.
func InsertOp(text string) Op { return Op{Kind: Insert, Text: text} }

func (o Op) String() string {
	if o.Kind == Insert {
		return fmt.Sprintf("insert(%q)", o.Text)
	}
	return fmt.Sprintf("%s(%d)", o.Kind, o.N)
}

// Summary counts what a script does.
type Summary struct {
	Ops      int
	Retained int
	Deleted  int
	// Inserted is measured in characters regardless of granularity.
	Inserted int
}

// Summarize tallies ops.
func Summarize(ops []Op) Summary {
	s := Summary{Ops: len(ops)}
	for _, op := range ops {
		switch op.Kind {
		case Retain:
			s.Retained += op.N
		case Delete:
			s.Deleted += op.N
		case Insert:
			s.Inserted += utf8.RuneCountInString(op.Text)
		}
	}
	return s
}

// BaseLen is the number of base units the script consumes.
func (s Summary) BaseLen() int {
	return s.Retained + s.Deleted
}

// Changed reports whether the script alters the base text.
func (s Summary) Changed() bool {
	return s.Deleted > 0 || s.Inserted > 0
}

func (s Summary) String() string {
	return fmt.Sprintf("ops=%d retain=%d delete=%d insert=%d", s.Ops, s.Retained, s.Deleted, s.Inserted)
}

// scriptBuilder accumulates ops, merging adjacent ops of the same kind and
// dropping empty ones.
type scriptBuilder struct {
	ops  []Op
	text strings.Builder
}

func (b *scriptBuilder) retain(n int) { b.push(Retain, n) }

func (b *scriptBuilder) delete(n int) { b.push(Delete, n) }

func (b *scriptBuilder) insert(s string) { b.text.WriteString(s) }

func (b *scriptBuilder) push(kind Kind, n int) {
	if n <= 0 {
		return
	}
	b.flushInsert()
	if last := len(b.ops) - 1; last >= 0 && b.ops[last].Kind == kind {
		b.ops[last].N += n
		return
	}
	b.ops = append(b.ops, Op{Kind: kind, N: n})
}

func (b *scriptBuilder) flushInsert() {
	if b.text.Len() == 0 {
		return
	}
	b.ops = append(b.ops, InsertOp(b.text.String()))
	b.text.Reset()
}

func (b *scriptBuilder) build() []Op {
	b.flushInsert()
	return b.ops
}

// Normalize merges adjacent ops of the same kind and removes empty ones.
// The result applies identically to the input.
func Normalize(ops []Op) []Op {
	var b scriptBuilder
	for _, op := range ops {
		switch op.Kind {
		case Retain:
			b.retain(op.N)
		case Delete:
			b.delete(op.N)
		case Insert:
			b.insert(op.Text)
		}
	}
	return b.build()
}
