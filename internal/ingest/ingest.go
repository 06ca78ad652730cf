// Package ingest drives the offline ingestion path: chunk, tag, embed
// and publish procedure documents into the vector store.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/practisage/medassist/config"
	"github.com/practisage/medassist/internal/chunker"
	"github.com/practisage/medassist/internal/tagging"
	"github.com/practisage/medassist/internal/telemetry"
	"github.com/practisage/medassist/internal/vectorstore"
	"github.com/practisage/medassist/provider"
)

const scrollPageSize = 100

// SkippedItem records one unit dropped from an ingestion run.
type SkippedItem struct {
	SourceFile string
	ChunkIndex int // -1 when the whole document was skipped
	Reason     string
}

// Report summarises an ingestion run: what made it into the index and
// what was dropped, with reasons. A skipped item is simply missing
// from the index; there is no retry.
type Report struct {
	Succeeded int
	Skipped   []SkippedItem
}

// Ingestor owns the destructive rebuild lifecycle of the collection.
type Ingestor struct {
	store    vectorstore.Store
	provider provider.Provider
	tags     *tagging.Generator
	cfg      config.IngestConfig
	qdrant   config.QdrantConfig
	embModel string
	logger   *log.Logger
}

func NewIngestor(st vectorstore.Store, p provider.Provider, tags *tagging.Generator, cfg *config.Config, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	return &Ingestor{
		store:    st,
		provider: p,
		tags:     tags,
		cfg:      cfg.Ingest,
		qdrant:   cfg.Qdrant,
		embModel: cfg.Providers.OpenAI.EmbeddingModel,
		logger:   logger,
	}
}

// Rebuild destructively resets the collection: delete it if present,
// then create it fresh. Failures here are fatal to the run; collection
// state is undefined until a rebuild succeeds.
func (i *Ingestor) Rebuild(ctx context.Context) error {
	if err := i.store.DeleteCollection(ctx); err != nil {
		return fmt.Errorf("delete collection %q: %w", i.qdrant.Collection, err)
	}
	i.logger.Printf("deleted existing collection %q", i.qdrant.Collection)

	if err := i.store.CreateCollection(ctx, i.qdrant.VectorSize, i.qdrant.Distance); err != nil {
		return fmt.Errorf("create collection %q: %w", i.qdrant.Collection, err)
	}
	i.logger.Printf("created new collection %q (size=%d, distance=%s)", i.qdrant.Collection, i.qdrant.VectorSize, i.qdrant.Distance)
	return nil
}

// item is one chunk ready for embedding, with its payload assembled.
type item struct {
	payload vectorstore.Payload
}

// Run walks dataDir for markdown files and ingests them sequentially:
// chunking, one consistent-tags call per document, one specific-tags
// call and one embedding per chunk, then an upsert per record. Record
// ids are the position in the overall processed sequence for this run.
// Per-item failures are logged, counted and skipped; the run continues.
func (i *Ingestor) Run(ctx context.Context, dataDir string) (*Report, error) {
	if dataDir == "" {
		dataDir = i.cfg.DataDir
	}
	report := &Report{}

	items, err := i.collect(ctx, dataDir, report)
	if err != nil {
		return nil, err
	}
	i.logger.Printf("processed %d chunks from %s", len(items), dataDir)

	for id, it := range items {
		if err := i.publish(ctx, id, it); err != nil {
			i.logger.Printf("error processing item %d (%s): %v", id, it.payload.Metadata.SourceFile, err)
			report.Skipped = append(report.Skipped, SkippedItem{
				SourceFile: it.payload.Metadata.SourceFile,
				ChunkIndex: it.payload.Metadata.ChunkIndex,
				Reason:     err.Error(),
			})
			telemetry.ChunksSkipped.Inc()
			continue
		}
		report.Succeeded++
		telemetry.ChunksIngested.Inc()
	}
	return report, nil
}

// collect walks the data directory and produces chunk items in
// document order. Tagging failures skip the affected document or
// chunk and are recorded on the report.
func (i *Ingestor) collect(ctx context.Context, dataDir string, report *Report) ([]item, error) {
	var items []item
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		procedure := filepath.Base(filepath.Dir(path))
		fileType := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		i.logger.Printf("processing file: %s", path)

		content, err := os.ReadFile(path)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedItem{SourceFile: path, ChunkIndex: -1, Reason: err.Error()})
			i.logger.Printf("skipping %s: %v", path, err)
			return nil
		}

		chunks, err := chunker.Split(string(content), i.cfg.ChunkSize, i.cfg.ChunkOverlap)
		if err != nil {
			return fmt.Errorf("chunking %s: %w", path, err)
		}

		consistent, err := i.tags.ConsistentTags(ctx, string(content))
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedItem{SourceFile: path, ChunkIndex: -1, Reason: err.Error()})
			i.logger.Printf("skipping %s: %v", path, err)
			return nil
		}

		for idx, chunk := range chunks {
			i.logger.Printf("processing chunk %d/%d for %s", idx+1, len(chunks), path)
			specific, err := i.tags.SpecificTags(ctx, chunk, consistent)
			if err != nil {
				report.Skipped = append(report.Skipped, SkippedItem{SourceFile: path, ChunkIndex: idx + 1, Reason: err.Error()})
				telemetry.ChunksSkipped.Inc()
				i.logger.Printf("skipping chunk %d of %s: %v", idx+1, path, err)
				continue
			}
			items = append(items, item{payload: vectorstore.Payload{
				Text: chunk,
				Metadata: vectorstore.Metadata{
					Procedure:      procedure,
					Type:           fileType,
					ChunkIndex:     idx + 1,
					TotalChunks:    len(chunks),
					SourceFile:     path,
					ConsistentTags: consistent,
					SpecificTags:   specific,
				},
			}})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dataDir, err)
	}
	return items, nil
}

// publish embeds one chunk and upserts it under the given run-local id.
func (i *Ingestor) publish(ctx context.Context, id int, it item) error {
	vecs, err := i.provider.CreateEmbedding(ctx, i.embModel, []string{it.payload.Text})
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vecs) == 0 {
		return fmt.Errorf("embedding: oracle returned no vectors")
	}
	rec := vectorstore.Record{ID: id, Vector: vecs[0], Payload: it.payload}
	if err := i.store.Upsert(ctx, []vectorstore.Record{rec}); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// List scrolls every indexed record, vectors omitted. Used by the CLI
// show action for administrative listing.
func (i *Ingestor) List(ctx context.Context) ([]vectorstore.Point, error) {
	var all []vectorstore.Point
	offset := 0
	for {
		page, err := i.store.Scroll(ctx, offset, scrollPageSize)
		if err != nil {
			return nil, fmt.Errorf("scrolling collection: %w", err)
		}
		all = append(all, page...)
		if len(page) < scrollPageSize {
			return all, nil
		}
		offset += scrollPageSize
	}
}
