package rope

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Builder provides efficient incremental construction of a rope.
// It buffers writes and builds the rope structure when Build() is called.
type Builder struct {
	chunks   []string
	buffer   strings.Builder
	totalLen int
}

// NewBuilder creates a new rope builder.
func NewBuilder() *Builder {
	return &Builder{
		chunks: make([]string, 0, 64),
	}
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) (int, error) {
	if len(s) == 0 {
		return 0, nil
	}

	b.totalLen += len(s)
	b.buffer.WriteString(s)

	if b.buffer.Len() >= MaxLeafSize*2 {
		b.flushBuffer()
	}
	return len(s), nil
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	return b.WriteString(string(p))
}

// flushBuffer converts the buffer contents to chunks. A trailing
// partial UTF-8 sequence stays buffered so writes may split runes.
func (b *Builder) flushBuffer() {
	if b.buffer.Len() == 0 {
		return
	}

	s := b.buffer.String()
	b.buffer.Reset()

	cut := len(s)
	start := cut - 1
	for start > 0 && start > len(s)-utf8.UTFMax && !isUTF8Start(s[start]) {
		start--
	}
	if !utf8.FullRuneInString(s[start:]) {
		cut = start
	}

	b.chunks = append(b.chunks, splitIntoChunks(s[:cut])...)
	b.buffer.WriteString(s[cut:])
}

// Len returns the total number of bytes written.
func (b *Builder) Len() int {
	return b.totalLen
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.chunks = b.chunks[:0]
	b.buffer.Reset()
	b.totalLen = 0
}

// Build creates the rope from accumulated data.
// After calling Build, the builder is reset.
func (b *Builder) Build() Rope {
	if b.buffer.Len() > 0 {
		b.chunks = append(b.chunks, splitIntoChunks(b.buffer.String())...)
		b.buffer.Reset()
	}

	leaves := make([]*node, 0, len(b.chunks))
	for _, c := range b.chunks {
		leaves = append(leaves, newLeaf(c))
	}
	b.Reset()

	return Rope{root: buildBalanced(leaves)}
}

// ReadFrom implements io.ReaderFrom for efficient reading.
func (b *Builder) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var total int64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = b.WriteString(string(buf[:n]))
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// FromReader creates a rope from an io.Reader.
func FromReader(r io.Reader) (Rope, error) {
	b := NewBuilder()
	if _, err := b.ReadFrom(r); err != nil {
		return Rope{}, err
	}
	return b.Build(), nil
}

// FromLines creates a rope with one leaf per line. Each line gets a
// newline appended except the last.
func FromLines(lines []string) Rope {
	seq := make([]string, len(lines))
	for i, line := range lines {
		if i < len(lines)-1 {
			line += "\n"
		}
		seq[i] = line
	}
	return FromSequence(seq)
}

// SplitLines splits s into lines that keep their terminators. The final
// element has no terminator and is omitted when empty.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
