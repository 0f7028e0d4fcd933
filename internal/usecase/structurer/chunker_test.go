package structurer

import (
	"strings"
	"testing"
)

func TestSplitWindows_Empty(t *testing.T) {
	if got := splitWindows("", 500, 50); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := splitWindows("   \n  ", 500, 50); got != nil {
		t.Errorf("expected nil for whitespace input, got %v", got)
	}
}

func TestSplitWindows_ShortInputSingleChunk(t *testing.T) {
	text := "A short paragraph that fits in one window."
	got := splitWindows(text, 500, 50)
	if len(got) != 1 || got[0] != text {
		t.Errorf("got %v, want single chunk with original text", got)
	}
}

func TestSplitWindows_CoversWholeInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Sentence number with some padding words here. ")
	}
	text := strings.TrimSpace(b.String())

	chunks := splitWindows(text, 500, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for %d chars, got %d", len(text), len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 500 {
			t.Errorf("chunk %d exceeds window: %d runes", i, len([]rune(c)))
		}
	}
	// The tail of the input must appear in the last chunk.
	if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
		t.Error("last chunk is not a suffix of the input")
	}
}

func TestSplitWindows_SnapsToSentenceBoundary(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("This is a complete sentence of reasonable length. ")
	}
	chunks := splitWindows(strings.TrimSpace(b.String()), 500, 50)

	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, ".") {
			t.Errorf("chunk %d does not end on a sentence boundary: %q", i, c[len(c)-20:])
		}
	}
}

func TestSplitWindows_OverlapRepeatsText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Filler sentence to build up a long document body here. ")
	}
	chunks := splitWindows(strings.TrimSpace(b.String()), 500, 50)
	if len(chunks) < 2 {
		t.Fatal("need at least two chunks")
	}

	// The start of each following chunk must occur inside the previous one.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i]
		if len(head) > 30 {
			head = head[:30]
		}
		if !strings.Contains(chunks[i-1], head) {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestSplitWindows_NoBoundaryStillProgresses(t *testing.T) {
	text := strings.Repeat("a", 1200) // no sentence ends, no newlines
	chunks := splitWindows(text, 500, 50)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total < len(text) {
		t.Errorf("chunks cover %d chars of %d", total, len(text))
	}
}
