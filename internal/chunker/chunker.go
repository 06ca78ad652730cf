// Package chunker splits raw document text into overlapping,
// boundary-aware segments for embedding.
package chunker

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Split cuts text into chunks of at most chunkSize characters. When a
// window ends inside the text, the boundary snaps back to just after
// the last period or newline within the window so sentences survive
// intact where a natural break exists. Each chunk after the first
// re-includes the trailing chunkOverlap characters of its predecessor
// for cross-chunk context continuity.
func Split(text string, chunkSize, chunkOverlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be > 0, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be >= 0, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		// The loop below would stop advancing.
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", chunkOverlap, chunkSize)
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end < len(text) {
			if last := lastBreak(text, start, end); last != -1 {
				end = last + 1
			}
		}
		sliceEnd := end
		if sliceEnd > len(text) {
			sliceEnd = len(text)
		}
		chunks = append(chunks, strings.TrimSpace(text[start:sliceEnd]))

		// The unclamped end keeps the advance uniform on the final
		// window; a snap close to start must still move forward.
		next := end - chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// lastBreak returns the index of the last '.' or '\n' in text[start:end],
// or -1 when the window holds no break character.
func lastBreak(text string, start, end int) int {
	window := text[start:end]
	dot := strings.LastIndexByte(window, '.')
	nl := strings.LastIndexByte(window, '\n')
	last := dot
	if nl > last {
		last = nl
	}
	if last == -1 {
		return -1
	}
	return start + last
}
