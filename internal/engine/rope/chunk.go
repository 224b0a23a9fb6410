package rope

// Leaf size constants control how FromString and the Builder cut text.
const (
	// MaxLeafSize is the maximum bytes per leaf produced by chunking.
	MaxLeafSize = 1024

	// TargetLeafSize is the preferred leaf size when chunking.
	TargetLeafSize = 768
)

// splitIntoChunks splits a string into leaf-sized pieces.
// Every piece is a valid UTF-8 boundary slice of s.
func splitIntoChunks(s string) []string {
	if len(s) == 0 {
		return nil
	}
	if len(s) <= MaxLeafSize {
		return []string{s}
	}

	var chunks []string
	remaining := s
	for len(remaining) > 0 {
		if len(remaining) <= MaxLeafSize {
			chunks = append(chunks, remaining)
			break
		}
		split := findSplitPoint(remaining, TargetLeafSize)
		chunks = append(chunks, remaining[:split])
		remaining = remaining[split:]
	}
	return chunks
}

// findSplitPoint finds a UTF-8 boundary near target, preferring the
// position just after a newline.
func findSplitPoint(s string, target int) int {
	if target >= len(s) {
		return len(s)
	}
	if target <= 0 {
		return 0
	}

	window := (MaxLeafSize - TargetLeafSize) / 2
	searchStart := max(target-window, 1)
	searchEnd := min(target+window, len(s))

	for i := target; i < searchEnd; i++ {
		if s[i] == '\n' {
			return i + 1
		}
	}
	for i := target - 1; i >= searchStart; i-- {
		if s[i] == '\n' {
			return i + 1
		}
	}

	pos := target
	for pos > 0 && !isUTF8Start(s[pos]) {
		pos--
	}
	if pos == 0 {
		pos = target
		for pos < len(s) && !isUTF8Start(s[pos]) {
			pos++
		}
	}
	return pos
}

// isUTF8Start returns true if the byte starts a UTF-8 sequence.
func isUTF8Start(b byte) bool {
	return b&0xC0 != 0x80
}
