package diff

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/ropesync/internal/engine/rope"
)

// Algorithm selects the differ backing Compute.
type Algorithm uint8

const (
	// AlgorithmDMP uses diff-match-patch with its bisect heuristics and
	// deadline.
	AlgorithmDMP Algorithm = iota
	// AlgorithmMyers uses an exact Myers shortest edit script. Inputs larger
	// than Options.MaxMyersUnits fall back to AlgorithmDMP.
	AlgorithmMyers
)

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmDMP:
		return "dmp"
	case AlgorithmMyers:
		return "myers"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dmp", "diffmatchpatch":
		return AlgorithmDMP, nil
	case "myers":
		return AlgorithmMyers, nil
	default:
		return AlgorithmDMP, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Default limits for diff computation.
const (
	// DefaultTimeout bounds diff-match-patch before it settles for a
	// correct but less minimal script.
	DefaultTimeout = time.Second

	// DefaultMaxMyersUnits is the largest trimmed input, in units of both
	// sides combined, handed to the Myers differ.
	DefaultMaxMyersUnits = 2000

	// maxLineTokens is the number of distinct lines diff-match-patch can
	// encode as runes.
	maxLineTokens = 0x110000 - 0x800 - 1
)

// Options configures a Differ.
type Options struct {
	Algorithm Algorithm

	// Timeout for diff-match-patch. Zero disables the deadline.
	Timeout time.Duration

	// MaxMyersUnits caps the Myers differ input. Zero uses the default.
	MaxMyersUnits int
}

// DefaultOptions returns default diff options.
func DefaultOptions() Options {
	return Options{
		Algorithm:     AlgorithmDMP,
		Timeout:       DefaultTimeout,
		MaxMyersUnits: DefaultMaxMyersUnits,
	}
}

// Differ computes edit scripts. It is safe for concurrent use.
type Differ struct {
	opts Options
	dmp  *diffmatchpatch.DiffMatchPatch
}

// New creates a Differ.
func New(opts Options) *Differ {
	if opts.MaxMyersUnits <= 0 {
		opts.MaxMyersUnits = DefaultMaxMyersUnits
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = opts.Timeout
	return &Differ{opts: opts, dmp: dmp}
}

// Options returns the differ's configuration.
func (d *Differ) Options() Options {
	return d.opts
}

var defaultDiffer = New(DefaultOptions())

// Compute returns a script turning oldText into newText using the default
// differ.
func Compute(oldText, newText string, g Granularity) ([]Op, error) {
	return defaultDiffer.Compute(oldText, newText, g)
}

// Compute returns a total edit script turning oldText into newText.
func (d *Differ) Compute(oldText, newText string, g Granularity) ([]Op, error) {
	if oldText == newText {
		var b scriptBuilder
		b.retain(unitCount(oldText, g))
		return b.build(), nil
	}

	switch g {
	case Char:
		if d.opts.Algorithm == AlgorithmMyers {
			a, b := []rune(oldText), []rune(newText)
			if ops, ok := myersScript(d, a, b, func(r rune) string { return string(r) }); ok {
				return ops, nil
			}
		}
		return d.dmpChars(oldText, newText), nil
	case Line:
		if d.opts.Algorithm == AlgorithmMyers {
			a, b := rope.SplitLines(oldText), rope.SplitLines(newText)
			if ops, ok := myersScript(d, a, b, func(s string) string { return s }); ok {
				return ops, nil
			}
		}
		return d.dmpLines(oldText, newText)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownGranularity, g)
	}
}

func (d *Differ) dmpChars(oldText, newText string) []Op {
	diffs := d.dmp.DiffMain(oldText, newText, false)

	var b scriptBuilder
	for _, df := range diffs {
		switch df.Type {
		case diffmatchpatch.DiffEqual:
			b.retain(utf8.RuneCountInString(df.Text))
		case diffmatchpatch.DiffDelete:
			b.delete(utf8.RuneCountInString(df.Text))
		case diffmatchpatch.DiffInsert:
			b.insert(df.Text)
		}
	}
	return b.build()
}

// dmpLines hashes each line to a rune, diffs the rune strings and maps the
// result back to lines.
func (d *Differ) dmpLines(oldText, newText string) ([]Op, error) {
	if strings.Count(oldText, "\n")+strings.Count(newText, "\n")+2 > maxLineTokens {
		return nil, fmt.Errorf("%w: more than %d lines", ErrTooLarge, maxLineTokens)
	}

	src, dst, lines := d.dmp.DiffLinesToRunes(oldText, newText)
	diffs := d.dmp.DiffMainRunes(src, dst, false)
	diffs = d.dmp.DiffCleanupMerge(diffs)
	hydrated := d.dmp.DiffCharsToLines(diffs, lines)

	var b scriptBuilder
	for i, df := range diffs {
		n := utf8.RuneCountInString(df.Text)
		switch df.Type {
		case diffmatchpatch.DiffEqual:
			b.retain(n)
		case diffmatchpatch.DiffDelete:
			b.delete(n)
		case diffmatchpatch.DiffInsert:
			b.insert(hydrated[i].Text)
		}
	}
	return b.build(), nil
}

// myersScript runs the Myers differ over tokens after trimming the common
// prefix and suffix. It reports false when the remainder is too large.
func myersScript[T comparable](d *Differ, a, b []T, text func(T) string) ([]Op, bool) {
	prefix, suffix := commonAffixes(a, b)
	midA, midB := a[prefix:len(a)-suffix], b[prefix:len(b)-suffix]
	if len(midA)+len(midB) > d.opts.MaxMyersUnits {
		return nil, false
	}

	var sb scriptBuilder
	sb.retain(prefix)
	for _, e := range myers(midA, midB) {
		switch e.kind {
		case Retain:
			sb.retain(1)
		case Delete:
			sb.delete(1)
		case Insert:
			sb.insert(text(midB[e.newIndex]))
		}
	}
	sb.retain(suffix)
	return sb.build(), true
}

// commonAffixes returns the lengths of the shared prefix and the shared
// suffix of a and b. The two never overlap.
func commonAffixes[T comparable](a, b []T) (prefix, suffix int) {
	n := min(len(a), len(b))
	for prefix < n && a[prefix] == b[prefix] {
		prefix++
	}
	for suffix < n-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	return prefix, suffix
}

// unitCount returns the number of g units in s.
func unitCount(s string, g Granularity) int {
	if g == Line {
		return len(rope.SplitLines(s))
	}
	return utf8.RuneCountInString(s)
}
