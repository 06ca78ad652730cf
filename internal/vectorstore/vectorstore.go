// Package vectorstore talks to the Qdrant collection holding embedded
// procedure chunks.
package vectorstore

import (
	"context"
	"errors"
)

// ErrUnavailable wraps connectivity and server-side failures so
// callers can tell a broken store apart from an empty result set.
var ErrUnavailable = errors.New("vector store unavailable")

// Metadata travels in every record payload next to the chunk text.
type Metadata struct {
	Procedure      string   `json:"procedure"`
	Type           string   `json:"type"`
	ChunkIndex     int      `json:"chunk_index"`
	TotalChunks    int      `json:"total_chunks"`
	SourceFile     string   `json:"source_file"`
	ConsistentTags []string `json:"consistent_tags"`
	SpecificTags   []string `json:"specific_tags"`
}

// Payload is the JSON document stored with each point.
type Payload struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Record is one point to upsert. IDs are the enumeration order of the
// ingestion run; they are not stable across rebuilds.
type Record struct {
	ID      int
	Vector  []float32
	Payload Payload
}

// Match is one scored search hit.
type Match struct {
	ID      int
	Score   float64
	Payload Payload
}

// Point is one stored record as returned by a scroll, vectors omitted.
type Point struct {
	ID      int
	Payload Payload
}

// Store is the collection contract the ingestion and retrieval paths
// rely on.
type Store interface {
	DeleteCollection(ctx context.Context) error
	CreateCollection(ctx context.Context, vectorSize int, distance string) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int, filterKeywords []string) ([]Match, error)
	Scroll(ctx context.Context, offset, limit int) ([]Point, error)
}
