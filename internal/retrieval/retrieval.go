// Package retrieval answers queries against the indexed knowledge
// base via filtered vector similarity search.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/practisage/medassist/internal/telemetry"
	"github.com/practisage/medassist/internal/vectorstore"
	"github.com/practisage/medassist/provider"
)

// DefaultTopK bounds result counts when the caller does not ask for
// a specific number.
const DefaultTopK = 5

// ErrStoreUnavailable reports that the search could not be executed,
// as opposed to executing and matching nothing. Callers that render
// for end users map this to a status message; programmatic callers
// can branch on it with errors.Is.
var ErrStoreUnavailable = errors.New("knowledge base unavailable")

// Result is one retrieved chunk with the metadata stored alongside it.
type Result struct {
	Text     string               `json:"text"`
	Metadata vectorstore.Metadata `json:"metadata"`
}

// Retriever embeds queries and searches the vector store. Stateless;
// safe for concurrent use.
type Retriever struct {
	store    vectorstore.Store
	provider provider.Provider
	embModel string
	logger   *log.Logger
}

func NewRetriever(st vectorstore.Store, p provider.Provider, embeddingModel string, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVAL] ", log.LstdFlags)
	}
	return &Retriever{store: st, provider: p, embModel: embeddingModel, logger: logger}
}

// Search embeds the query with the same model used at ingestion time
// and runs a nearest-neighbor search, restricted to records whose
// consistent or specific tags contain any of filterKeywords when the
// list is non-empty. Results come back best match first, at most topK.
func (r *Retriever) Search(ctx context.Context, query string, filterKeywords []string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	r.logger.Printf("searching knowledge base: query=%q keywords=%v top_k=%d", query, filterKeywords, topK)

	vecs, err := r.provider.CreateEmbedding(ctx, r.embModel, []string{query})
	if err != nil {
		telemetry.RetrievalErrors.Inc()
		return nil, fmt.Errorf("%w: embedding query: %v", ErrStoreUnavailable, err)
	}
	if len(vecs) == 0 {
		telemetry.RetrievalErrors.Inc()
		return nil, fmt.Errorf("%w: embedding oracle returned no vectors", ErrStoreUnavailable)
	}

	matches, err := r.store.Search(ctx, vecs[0], topK, filterKeywords)
	if err != nil {
		telemetry.RetrievalErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{Text: m.Payload.Text, Metadata: m.Payload.Metadata})
	}
	r.logger.Printf("found %d relevant document(s)", len(results))
	return results, nil
}
