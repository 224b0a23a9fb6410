package rope

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

// generateText creates a string of the given size with realistic content.
func generateText(size int) string {
	var sb strings.Builder
	sb.Grow(size)

	words := []string{"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog", "hello", "world"}
	lineLen := 0

	for sb.Len() < size {
		word := words[rand.Intn(len(words))]
		if sb.Len()+len(word)+1 > size {
			break
		}

		if sb.Len() > 0 {
			if lineLen > 60 {
				sb.WriteByte('\n')
				lineLen = 0
			} else {
				sb.WriteByte(' ')
				lineLen++
			}
		}

		sb.WriteString(word)
		lineLen += len(word)
	}

	return sb.String()
}

// generateTextWithLines creates text with approximately the given number of lines.
func generateTextWithLines(lines int, avgLineLen int) string {
	var sb strings.Builder
	sb.Grow(lines * (avgLineLen + 1))

	for i := 0; i < lines; i++ {
		lineLen := avgLineLen + rand.Intn(21) - 10 // +/- 10
		if lineLen < 10 {
			lineLen = 10
		}
		for j := 0; j < lineLen; j++ {
			sb.WriteByte(byte('a' + rand.Intn(26)))
		}
		if i < lines-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// Benchmarks for rope creation

func BenchmarkFromString(b *testing.B) {
	sizes := []int{100, 1000, 10000, 100000, 1000000}

	for _, size := range sizes {
		text := generateText(size)
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = FromString(text)
			}
		})
	}
}

func BenchmarkBuilder(b *testing.B) {
	sizes := []int{100, 1000, 10000, 100000}
	chunkSize := 100

	for _, size := range sizes {
		text := generateText(size)
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				builder := NewBuilder()
				for j := 0; j < len(text); j += chunkSize {
					end := min(j+chunkSize, len(text))
					_, _ = builder.WriteString(text[j:end])
				}
				_ = builder.Build()
			}
		})
	}
}

// Benchmarks for edits

func BenchmarkInsertMiddle(b *testing.B) {
	sizes := []int{1000, 10000, 100000}

	for _, size := range sizes {
		r := FromString(generateText(size))
		mid := r.Len() / 2
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = r.Insert(mid, "inserted", Char)
			}
		})
	}
}

func BenchmarkInsertRandom(b *testing.B) {
	r := FromString(generateText(100000))
	positions := make([]int, 1000)
	for i := range positions {
		positions[i] = rand.Intn(r.Len() + 1)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Insert(positions[i%len(positions)], "x", Char)
	}
}

func BenchmarkDeleteMiddle(b *testing.B) {
	r := FromString(generateText(100000))
	mid := r.Len() / 2

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Delete(mid, mid+100, Char)
	}
}

func BenchmarkConcat(b *testing.B) {
	left := FromString(generateText(50000))
	right := FromString(generateText(50000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = left.Concat(right)
	}
}

func BenchmarkSplit(b *testing.B) {
	for _, unit := range []Unit{Char, Line} {
		r := FromString(generateTextWithLines(5000, 60))
		at := r.Total(unit) / 2
		b.Run(unit.String(), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _, _ = r.Split(at, unit)
			}
		})
	}
}

// Benchmarks for lookups

func BenchmarkRuneAt(b *testing.B) {
	r := FromString(generateText(100000))
	n := r.Len()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.RuneAt(i % n)
	}
}

func BenchmarkIndexLine(b *testing.B) {
	r := FromString(generateTextWithLines(10000, 60))
	n := r.Total(Line)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Index(i%n, Line)
	}
}

func BenchmarkOffsetOfLine(b *testing.B) {
	r := FromString(generateTextWithLines(10000, 60))
	n := r.Total(Line)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.OffsetOfLine(i % n)
	}
}

func BenchmarkLineAtOffset(b *testing.B) {
	r := FromString(generateTextWithLines(10000, 60))
	n := r.Len()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.LineAtOffset(i % n)
	}
}

// Degradation and recovery

func BenchmarkSequentialEdits(b *testing.B) {
	for _, rebalance := range []bool{false, true} {
		b.Run(fmt.Sprintf("rebalance=%v", rebalance), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				r := New()
				for j := 0; j < 2000; j++ {
					r, _ = r.Insert(r.Len(), "x", Char)
					if rebalance && r.NeedsRebalance(32) {
						r = r.Rebalance()
					}
				}
				_, _ = r.RuneAt(r.Len() / 2)
			}
		})
	}
}

func BenchmarkStringVsRopeInsert(b *testing.B) {
	text := generateText(100000)

	b.Run("string", func(b *testing.B) {
		runes := []rune(text)
		mid := len(runes) / 2
		for i := 0; i < b.N; i++ {
			_ = string(runes[:mid]) + "x" + string(runes[mid:])
		}
	})

	b.Run("rope", func(b *testing.B) {
		r := FromString(text)
		mid := r.Len() / 2
		for i := 0; i < b.N; i++ {
			_, _ = r.Insert(mid, "x", Char)
		}
	})
}
