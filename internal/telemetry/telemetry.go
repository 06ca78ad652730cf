// Package telemetry holds the prometheus instruments shared by the
// ingestion and query paths. Scraped via /metrics on the API server.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRequests counts chat completion requests by outcome
	// (ok, rejected, error).
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medassist_chat_requests_total",
		Help: "Chat completion requests by outcome.",
	}, []string{"outcome"})

	// GuardrailRejections counts guardrail vetoes by reason.
	GuardrailRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medassist_guardrail_rejections_total",
		Help: "Inputs rejected by the guardrail, by reason.",
	}, []string{"reason"})

	// ChunksIngested counts chunks successfully written to the
	// vector store during ingestion runs.
	ChunksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medassist_chunks_ingested_total",
		Help: "Chunks embedded and upserted during ingestion.",
	})

	// ChunksSkipped counts chunks dropped by per-item failures.
	ChunksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medassist_chunks_skipped_total",
		Help: "Chunks skipped during ingestion due to per-item failures.",
	})

	// RetrievalErrors counts retrieval operations that failed against
	// the embedding oracle or the vector store.
	RetrievalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medassist_retrieval_errors_total",
		Help: "Failed knowledge base searches.",
	})
)
