package rope

import (
	"errors"
	"strings"
	"testing"
	"testing/quick"
	"unicode/utf8"
)

// wikiExample is the rope from the classic "hello my name is Simon" figure.
func wikiExample() Rope {
	leaf := func(s string) Rope { return FromString(s) }
	return Concat(
		Concat(leaf("hello "), leaf("my ")),
		Concat(Concat(leaf("na"), leaf("me i")), Concat(leaf("s"), leaf(" Simon"))),
	)
}

func TestNew(t *testing.T) {
	r := New()
	if r.Len() != 0 {
		t.Errorf("New rope should have length 0, got %d", r.Len())
	}
	if !r.IsEmpty() {
		t.Error("New rope should be empty")
	}
	if r.String() != "" {
		t.Errorf("New rope String() should be empty, got %q", r.String())
	}
	if r.LineCount() != 0 {
		t.Errorf("New rope should have 0 newlines, got %d", r.LineCount())
	}
	if r.Depth() != 0 {
		t.Errorf("New rope should have depth 0, got %d", r.Depth())
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		chars int
		lines int
	}{
		{"empty", "", 0, 0},
		{"single char", "a", 1, 0},
		{"short string", "hello", 5, 0},
		{"with newline", "hello\nworld", 11, 1},
		{"multiple newlines", "a\nb\nc\nd", 7, 3},
		{"unicode", "hello 世界 🌍", 10, 0},
		{"long string", strings.Repeat("abcdefghi\n", 300), 3000, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.input)
			if r.String() != tt.input {
				t.Errorf("String() = %q, want %q", r.String(), tt.input)
			}
			if r.Len() != tt.chars {
				t.Errorf("Len() = %d, want %d", r.Len(), tt.chars)
			}
			if r.LineCount() != tt.lines {
				t.Errorf("LineCount() = %d, want %d", r.LineCount(), tt.lines)
			}
		})
	}
}

func TestScenarioHelloRuthless(t *testing.T) {
	r := FromSequence([]string{"Hello Ruthless\n", "World\n"})

	if got := r.Len(); got != 21 {
		t.Errorf("Len() = %d, want 21", got)
	}
	if got, err := r.LineAtOffset(17); err != nil || got != 1 {
		t.Errorf("LineAtOffset(17) = %d, %v; want 1", got, err)
	}
	if got, err := r.OffsetOfLine(2); err != nil || got != 21 {
		t.Errorf("OffsetOfLine(2) = %d, %v; want 21", got, err)
	}
	if got, err := r.OffsetOfLine(1); err != nil || got != 15 {
		t.Errorf("OffsetOfLine(1) = %d, %v; want 15", got, err)
	}
	if got := r.LineCount(); got != 2 {
		t.Errorf("LineCount() = %d, want 2", got)
	}

	lineTests := []struct {
		i    int
		want string
	}{
		{0, "Hello Ruthless\n"},
		{1, "World\n"},
	}
	for _, tt := range lineTests {
		got, err := r.Index(tt.i, Line)
		if err != nil || got != tt.want {
			t.Errorf("Index(%d, Line) = %q, %v; want %q", tt.i, got, err, tt.want)
		}
	}

	charTests := []struct {
		i    int
		want string
	}{
		{0, "H"},
		{13, "s"},
		{14, "\n"},
		{15, "W"},
	}
	for _, tt := range charTests {
		got, err := r.Index(tt.i, Char)
		if err != nil || got != tt.want {
			t.Errorf("Index(%d, Char) = %q, %v; want %q", tt.i, got, err, tt.want)
		}
	}

	inserted, err := r.Insert(1, "Space\n", Line)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if want := "Hello Ruthless\nSpace\nWorld\n"; inserted.String() != want {
		t.Errorf("Insert(1, Line) = %q, want %q", inserted.String(), want)
	}
	if r.String() != "Hello Ruthless\nWorld\n" {
		t.Errorf("original modified: %q", r.String())
	}
}

func TestWikiExample(t *testing.T) {
	r := wikiExample()
	if r.String() != "hello my name is Simon" {
		t.Fatalf("String() = %q", r.String())
	}
	if r.Len() != 22 {
		t.Errorf("Len() = %d, want 22", r.Len())
	}
	got, err := r.Index(10, Char)
	if err != nil || got != "a" {
		t.Errorf("Index(10) = %q, %v; want %q", got, err, "a")
	}
	for i := 0; i <= r.Len(); i++ {
		left, right, err := r.Split(i, Char)
		if err != nil {
			t.Fatalf("Split(%d): %v", i, err)
		}
		if left.Len() != i {
			t.Errorf("Split(%d) left len = %d", i, left.Len())
		}
		if left.String()+right.String() != r.String() {
			t.Errorf("Split(%d) lost text: %q + %q", i, left.String(), right.String())
		}
	}
}

func TestConcat(t *testing.T) {
	tests := []struct {
		name  string
		left  string
		right string
	}{
		{"both empty", "", ""},
		{"left empty", "", "hello"},
		{"right empty", "hello", ""},
		{"both non-empty", "hello ", "world"},
		{"with newlines", "a\nb", "\nc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Concat(FromString(tt.left), FromString(tt.right))
			if got := r.String(); got != tt.left+tt.right {
				t.Errorf("got %q, want %q", got, tt.left+tt.right)
			}
		})
	}
}

func TestConcatEmptyIsIdentity(t *testing.T) {
	r := FromString("hello")
	if got := r.Concat(New()); got.root != r.root {
		t.Error("concat with empty right operand should return the left rope unchanged")
	}
	if got := New().Concat(r); got.root != r.root {
		t.Error("concat with empty left operand should return the right rope unchanged")
	}
}

func TestConcatWeight(t *testing.T) {
	a := FromString("ab\ncd\n")
	b := FromString("ef")
	r := a.Concat(b)
	if r.root.isLeaf() {
		t.Fatal("expected a branch")
	}
	if r.root.weight != (Weight{Chars: 6, Lines: 2}) {
		t.Errorf("branch weight = %+v, want left totals", r.root.weight)
	}
	if r.root.left != a.root || r.root.right != b.root {
		t.Error("concat should share operand subtrees")
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		offset   int
		text     string
		expected string
	}{
		{"insert at start", "world", 0, "hello ", "hello world"},
		{"insert at end", "hello", 5, " world", "hello world"},
		{"insert in middle", "helloworld", 5, " ", "hello world"},
		{"insert into empty", "", 0, "hello", "hello"},
		{"insert empty string", "hello", 3, "", "hello"},
		{"insert unicode", "hello", 5, " 世界", "hello 世界"},
		{"insert between wide chars", "世界", 1, "!", "世!界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromString(tt.initial).Insert(tt.offset, tt.text, Char)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInsertLine(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		line     int
		text     string
		expected string
	}{
		{"before first line", "a\nb\n", 0, "x\n", "x\na\nb\n"},
		{"between lines", "a\nb\n", 1, "x\n", "a\nx\nb\n"},
		{"after last terminated line", "a\nb\n", 2, "x\n", "a\nb\nx\n"},
		{"before unterminated last line", "a\nb", 1, "x\n", "a\nx\nb"},
		{"after unterminated last line", "a\nb", 2, "c", "a\nbc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromSequence(strings.SplitAfter(tt.initial, "\n")).Insert(tt.line, tt.text, Line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		start    int
		end      int
		expected string
	}{
		{"delete from start", "hello world", 0, 6, "world"},
		{"delete from end", "hello world", 5, 11, "hello"},
		{"delete from middle", "hello world", 5, 6, "helloworld"},
		{"delete all", "hello", 0, 5, ""},
		{"delete nothing", "hello", 3, 3, "hello"},
		{"delete unicode", "a世界b", 1, 3, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromString(tt.initial).Delete(tt.start, tt.end, Char)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDeleteLines(t *testing.T) {
	r := FromSequence([]string{"one\ntw", "o\nthr", "ee\nfour"})
	got, err := r.Delete(1, 3, Line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "one\nfour" {
		t.Errorf("got %q, want %q", got.String(), "one\nfour")
	}
}

func TestSplitLinesAcrossLeaves(t *testing.T) {
	// Line boundaries fall inside leaves, not at leaf edges.
	r := FromSequence([]string{"ab\ncd", "ef\ngh", "\nij"})
	want := []string{"ab\n", "cdef\n", "gh\n", "ij"}

	if got := r.Total(Line); got != len(want) {
		t.Fatalf("Total(Line) = %d, want %d", got, len(want))
	}
	for i, line := range want {
		got, err := r.Index(i, Line)
		if err != nil || got != line {
			t.Errorf("Index(%d, Line) = %q, %v; want %q", i, got, err, line)
		}
	}
	for i := 0; i <= len(want); i++ {
		left, right, err := r.Split(i, Line)
		if err != nil {
			t.Fatalf("Split(%d, Line): %v", i, err)
		}
		if wantLeft := strings.Join(want[:i], ""); left.String() != wantLeft {
			t.Errorf("Split(%d, Line) left = %q, want %q", i, left.String(), wantLeft)
		}
		if left.String()+right.String() != r.String() {
			t.Errorf("Split(%d, Line) lost text", i)
		}
	}
}

func TestSplitEdges(t *testing.T) {
	r := FromString("hello")

	left, right, err := r.Split(0, Char)
	if err != nil || !left.IsEmpty() || right.String() != "hello" {
		t.Errorf("Split(0) = %q, %q, %v", left.String(), right.String(), err)
	}
	left, right, err = r.Split(5, Char)
	if err != nil || left.String() != "hello" || !right.IsEmpty() {
		t.Errorf("Split(5) = %q, %q, %v", left.String(), right.String(), err)
	}
	left, right, err = New().Split(0, Line)
	if err != nil || !left.IsEmpty() || !right.IsEmpty() {
		t.Errorf("Split of empty rope = %q, %q, %v", left.String(), right.String(), err)
	}
}

func TestOutOfRange(t *testing.T) {
	r := FromString("ab\ncd")

	checks := []struct {
		name string
		err  error
	}{
		{"index past end", func() error { _, err := r.Index(5, Char); return err }()},
		{"negative index", func() error { _, err := r.Index(-1, Char); return err }()},
		{"line past end", func() error { _, err := r.Index(2, Line); return err }()},
		{"split past end", func() error { _, _, err := r.Split(6, Char); return err }()},
		{"insert past end", func() error { _, err := r.Insert(6, "x", Char); return err }()},
		{"inverted range", func() error { _, err := r.Delete(3, 2, Char); return err }()},
		{"range past end", func() error { _, err := r.Delete(0, 9, Char); return err }()},
		{"offset of missing line", func() error { _, err := r.OffsetOfLine(3); return err }()},
		{"line at bad offset", func() error { _, err := r.LineAtOffset(6); return err }()},
	}
	for _, c := range checks {
		if !errors.Is(c.err, ErrOutOfRange) {
			t.Errorf("%s: got %v, want ErrOutOfRange", c.name, c.err)
		}
	}
	if r.String() != "ab\ncd" {
		t.Errorf("failed operations modified the rope: %q", r.String())
	}
}

func TestLineAtOffset(t *testing.T) {
	r := FromString("ab\ncd\n\nef")
	tests := []struct {
		offset int
		line   int
	}{
		{0, 0}, {2, 0}, {3, 1}, {5, 1}, {6, 2}, {7, 3}, {9, 3},
	}
	for _, tt := range tests {
		got, err := r.LineAtOffset(tt.offset)
		if err != nil || got != tt.line {
			t.Errorf("LineAtOffset(%d) = %d, %v; want %d", tt.offset, got, err, tt.line)
		}
	}
}

func TestOffsetOfLine(t *testing.T) {
	r := FromSequence([]string{"ab", "\ncd\n", "\nef"})
	want := []int{0, 3, 6, 7, 9}
	for line, off := range want {
		got, err := r.OffsetOfLine(line)
		if err != nil || got != off {
			t.Errorf("OffsetOfLine(%d) = %d, %v; want %d", line, got, err, off)
		}
	}
}

func TestRuneAt(t *testing.T) {
	r := FromSequence([]string{"日本", "語!"})
	want := []rune("日本語!")
	for i, w := range want {
		got, err := r.RuneAt(i)
		if err != nil || got != w {
			t.Errorf("RuneAt(%d) = %q, %v; want %q", i, got, err, w)
		}
	}
}

func TestSlice(t *testing.T) {
	r := FromString("hello\nworld\n!")
	tests := []struct {
		i, j int
		unit Unit
		want string
	}{
		{0, 5, Char, "hello"},
		{6, 11, Char, "world"},
		{0, 1, Line, "hello\n"},
		{1, 3, Line, "world\n!"},
		{2, 2, Line, ""},
	}
	for _, tt := range tests {
		got, err := r.Slice(tt.i, tt.j, tt.unit)
		if err != nil || got != tt.want {
			t.Errorf("Slice(%d, %d, %s) = %q, %v; want %q", tt.i, tt.j, tt.unit, got, err, tt.want)
		}
	}
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		start    int
		end      int
		text     string
		expected string
	}{
		{"replace word", "hello world", 6, 11, "universe", "hello universe"},
		{"replace with shorter", "hello world", 0, 5, "hi", "hi world"},
		{"replace with longer", "hi world", 0, 2, "hello", "hello world"},
		{"replace all", "hello", 0, 5, "world", "world"},
		{"replace nothing with insert", "hello", 5, 5, " world", "hello world"},
		{"replace with empty", "hello", 1, 4, "", "ho"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromString(tt.initial).Replace(tt.start, tt.end, tt.text, Char)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestImmutability(t *testing.T) {
	original := FromString("hello world")
	_, _ = original.Insert(5, ",", Char)
	_, _ = original.Delete(0, 6, Char)
	_, _, _ = original.Split(3, Char)

	if original.String() != "hello world" {
		t.Errorf("original rope was modified: %q", original.String())
	}
}

func TestSequentialEditsDegradeAndRebalance(t *testing.T) {
	r := New()
	var want strings.Builder
	for i := 0; i < 500; i++ {
		var err error
		r, err = r.Insert(r.Len(), "x", Char)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		want.WriteByte('x')
	}
	if r.Depth() < 100 {
		t.Errorf("expected an unbalanced tree after appends, depth = %d", r.Depth())
	}
	if !r.NeedsRebalance(64) {
		t.Error("NeedsRebalance(64) should report the degraded tree")
	}

	balanced := r.Rebalance()
	if balanced.String() != want.String() {
		t.Fatal("Rebalance changed the text")
	}
	if balanced.Depth() > 2 {
		t.Errorf("balanced depth = %d, want small tree", balanced.Depth())
	}
	if r.Depth() < 100 {
		t.Error("Rebalance modified the receiver")
	}
}

func TestFromSequenceIsLeftLeaning(t *testing.T) {
	r := FromSequence([]string{"a", "b", "c", "d"})
	if r.Depth() != 4 {
		t.Errorf("Depth() = %d, want 4", r.Depth())
	}
	if r.LeafCount() != 4 {
		t.Errorf("LeafCount() = %d, want 4", r.LeafCount())
	}
}

func TestChunksAndWriteTo(t *testing.T) {
	r := FromSequence([]string{"ab", "cd", "ef"})
	var got []string
	for c := range r.Chunks() {
		got = append(got, c)
	}
	if strings.Join(got, "|") != "ab|cd|ef" {
		t.Errorf("Chunks() = %v", got)
	}

	var sb strings.Builder
	n, err := r.WriteTo(&sb)
	if err != nil || n != 6 || sb.String() != "abcdef" {
		t.Errorf("WriteTo = %d, %v, %q", n, err, sb.String())
	}
}

func TestEqual(t *testing.T) {
	a := FromSequence([]string{"hel", "lo"})
	b := FromString("hello")
	if !a.Equal(b) {
		t.Error("ropes with equal text but different shape should be equal")
	}
	if a.Equal(FromString("help!")) {
		t.Error("different ropes reported equal")
	}
}

func TestComputeWeight(t *testing.T) {
	tests := []struct {
		input string
		want  Weight
	}{
		{"", Weight{}},
		{"abc", Weight{Chars: 3}},
		{"a\nb\n", Weight{Chars: 4, Lines: 2}},
		{"世界\n", Weight{Chars: 3, Lines: 1}},
		{"a\r\nb", Weight{Chars: 4, Lines: 1}},
	}
	for _, tt := range tests {
		if got := ComputeWeight(tt.input); got != tt.want {
			t.Errorf("ComputeWeight(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestLargeRope(t *testing.T) {
	text := strings.Repeat("the quick brown fox\n", 2000)
	r := FromString(text)
	if r.LeafCount() < 2 {
		t.Fatalf("expected multiple leaves, got %d", r.LeafCount())
	}
	if r.Len() != len(text) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(text))
	}
	off, err := r.OffsetOfLine(1000)
	if err != nil || off != 20000 {
		t.Errorf("OffsetOfLine(1000) = %d, %v; want 20000", off, err)
	}
	line, err := r.Index(1999, Line)
	if err != nil || line != "the quick brown fox\n" {
		t.Errorf("Index(1999, Line) = %q, %v", line, err)
	}
}

// clampIndex maps an arbitrary generated value into [0, n].
func clampIndex(v uint16, n int) int {
	return int(v) % (n + 1)
}

func TestConcatProperty(t *testing.T) {
	f := func(a, b string) bool {
		return Concat(FromString(a), FromString(b)).String() == a+b
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestSplitProperty(t *testing.T) {
	f := func(s string, pos uint16) bool {
		r := FromString(s)
		i := clampIndex(pos, r.Len())
		left, right, err := r.Split(i, Char)
		return err == nil && left.Len() == i && left.String()+right.String() == s
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestInsertProperty(t *testing.T) {
	f := func(s, text string, pos uint16) bool {
		runes := []rune(s)
		i := clampIndex(pos, len(runes))
		r, err := FromString(s).Insert(i, text, Char)
		return err == nil && r.String() == string(runes[:i])+text+string(runes[i:])
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestDeleteProperty(t *testing.T) {
	f := func(s string, a, b uint16) bool {
		runes := []rune(s)
		i, j := clampIndex(a, len(runes)), clampIndex(b, len(runes))
		if i > j {
			i, j = j, i
		}
		r, err := FromString(s).Delete(i, j, Char)
		return err == nil && r.String() == string(runes[:i])+string(runes[j:])
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestLenProperty(t *testing.T) {
	f := func(parts []string) bool {
		r := FromSequence(parts)
		return r.Len() == utf8.RuneCountInString(strings.Join(parts, ""))
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
