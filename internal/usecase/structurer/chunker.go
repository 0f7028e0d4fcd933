package structurer

import "strings"

// Default fallback chunking parameters.
const (
	DefaultWindowSize = 500
	DefaultOverlap    = 50

	// minChunkLength is the shortest input worth chunking at all.
	minChunkLength = 50
)

// splitWindows slices text into overlapping windows of roughly window
// characters. Window boundaries snap to the nearest sentence end or
// newline when one exists within the back half of the window, so chunks
// tend to end on natural breaks.
func splitWindows(text string, window, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if window <= 0 {
		window = DefaultWindowSize
	}
	if overlap < 0 || overlap >= window {
		overlap = DefaultOverlap
	}

	runes := []rune(text)
	if len(runes) <= window {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + window
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Snap to a boundary in the back half of the window.
		cut := end
		if idx := lastBoundary(runes[start+window/2 : end]); idx >= 0 {
			cut = start + window/2 + idx + 1
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// lastBoundary returns the index of the last sentence terminator or
// newline in runes, or -1.
func lastBoundary(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i
		}
	}
	return -1
}
