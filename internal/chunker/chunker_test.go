package chunker

import (
	"strings"
	"testing"
)

func TestSplit_UniformAdvanceWithoutBreaks(t *testing.T) {
	text := strings.Repeat("a", 1200)
	chunks, err := Split(text, 500, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantStarts := []int{0, 450, 900}
	for i, chunk := range chunks {
		if len(chunk) > 500 {
			t.Fatalf("chunk %d longer than 500: %d", i, len(chunk))
		}
		wantLen := 500
		if wantStarts[i]+wantLen > len(text) {
			wantLen = len(text) - wantStarts[i]
		}
		if len(chunk) != wantLen {
			t.Fatalf("chunk %d: expected length %d, got %d", i, wantLen, len(chunk))
		}
	}
}

func TestSplit_SnapsToSentenceBoundary(t *testing.T) {
	first := strings.Repeat("a", 200) + "."
	text := first + " " + strings.Repeat("b", 400)
	chunks, err := Split(text, 500, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if chunks[0] != first {
		t.Fatalf("expected first chunk to end at the period, got %q", chunks[0][len(chunks[0])-10:])
	}
}

func TestSplit_OverlapReincludesTail(t *testing.T) {
	text := strings.Repeat("x", 600)
	chunks, err := Split(text, 500, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	// Second chunk starts at 450, so it carries the last 50 chars of
	// the first plus the remaining 100.
	if len(chunks[1]) != 150 {
		t.Fatalf("expected second chunk length 150, got %d", len(chunks[1]))
	}
}

func TestSplit_ReconstructsOriginalWithoutBreaks(t *testing.T) {
	// Unique positions, no break characters and no whitespace, so
	// every chunk is an exact slice with an exact 20-char overlap.
	var b strings.Builder
	for b.Len() < 1000 {
		b.WriteByte(byte('a' + (b.Len() % 26)))
	}
	text := b.String()

	chunks, err := Split(text, 120, 20)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	rebuilt := chunks[0]
	for _, chunk := range chunks[1:] {
		rebuilt += chunk[20:]
	}
	if rebuilt != text {
		t.Fatalf("reconstruction mismatch: expected %d chars, got %d", len(text), len(rebuilt))
	}
}

func TestSplit_ChunksAreOrderedSubstrings(t *testing.T) {
	text := strings.Repeat("Sphinx of black quartz, judge my vow. ", 30)
	chunks, err := Split(text, 120, 20)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	pos := 0
	for i, chunk := range chunks {
		at := strings.Index(text[pos:], chunk)
		if at == -1 {
			t.Fatalf("chunk %d is not a substring at or after offset %d", i, pos)
		}
		pos += at
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks, err := Split("short note", 500, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "short note" {
		t.Fatalf("expected one identical chunk, got %v", chunks)
	}
}

func TestSplit_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	if _, err := Split("anything", 100, 100); err == nil {
		t.Fatal("expected error when overlap equals chunk size")
	}
	if _, err := Split("anything", 100, 150); err == nil {
		t.Fatal("expected error when overlap exceeds chunk size")
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split("", 500, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}
