// Package chat implements the OpenAI-compatible completion pipeline:
// guardrail check, optional knowledge-base augmentation, then a single
// or streamed model call.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practisage/medassist/internal/guardrail"
	"github.com/practisage/medassist/internal/retrieval"
	"github.com/practisage/medassist/internal/telemetry"
	"github.com/practisage/medassist/provider"
)

// Fixed responses returned when input fails the guardrail. The model
// is never called for these.
const (
	jailbreakStreamMessage  = "I'm sorry, due to system guardrails, I can't process that request. Please rephrase or ask something else related to medical office tasks."
	profanityStreamMessage  = "I'm sorry, we've detected language that's not appropriate for this service. Please rephrase or ask something else related to medical office tasks."
	jailbreakReplyMessage   = "I'm sorry, due to system guardrails, I can't process that request. Please rephrase or ask something else appropriate for this service."
	profanityReplyMessage   = "I'm sorry, we've detected language that's not appropriate for this service. Please rephrase or ask something else appropriate for this service."
)

// ContextRetriever supplies knowledge-base context for a query.
// *retrieval.Retriever satisfies it; tests substitute their own.
type ContextRetriever interface {
	Search(ctx context.Context, query string, filterKeywords []string, topK int) ([]retrieval.Result, error)
}

// Service runs chat completions. Stateless across requests apart from
// its read-only collaborators; safe for concurrent use.
type Service struct {
	provider  provider.Provider
	validator *guardrail.Validator
	retriever ContextRetriever
	model     string
	logger    *log.Logger
}

// NewService builds the pipeline. retriever may be nil, in which case
// answers are generated from the conversation alone.
func NewService(p provider.Provider, v *guardrail.Validator, retriever ContextRetriever, model string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHAT] ", log.LstdFlags)
	}
	return &Service{provider: p, validator: v, retriever: retriever, model: model, logger: logger}
}

// Complete runs one synchronous completion. Usage is reported zeroed;
// token accounting is not implemented.
func (s *Service) Complete(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	outcome := s.validator.Validate(lastUserContent(req.Messages))
	s.logger.Printf("input validation: valid=%t reason=%q", outcome.Valid, outcome.Reason)

	var content string
	if !outcome.Valid {
		telemetry.ChatRequests.WithLabelValues("rejected").Inc()
		telemetry.GuardrailRejections.WithLabelValues(outcome.Reason).Inc()
		content = rejectionMessage(outcome.Reason, false)
	} else {
		answer, err := s.provider.Complete(ctx, s.modelFor(req), s.assemble(ctx, req.Messages))
		if err != nil {
			telemetry.ChatRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("generating completion: %w", err)
		}
		telemetry.ChatRequests.WithLabelValues("ok").Inc()
		content = answer
	}

	return &ChatCompletionResponse{
		ID:      uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []ChatCompletionChoice{{
			Index:        0,
			Message:      ChatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}, nil
}

// Stream runs one completion as an ordered chunk sequence: the first
// chunk carries role and the first content fragment, subsequent chunks
// carry content only, and the final chunk has an empty delta with
// finish_reason "stop". The transport appends the [DONE] sentinel.
// Both channels close when the stream ends or ctx is cancelled.
func (s *Service) Stream(ctx context.Context, req ChatCompletionRequest) (<-chan ChatCompletionChunk, <-chan error) {
	out := make(chan ChatCompletionChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		outcome := s.validator.Validate(lastUserContent(req.Messages))
		s.logger.Printf("input validation: valid=%t reason=%q", outcome.Valid, outcome.Reason)

		model := req.Model
		if model == "" {
			model = s.model
		}

		if !outcome.Valid {
			telemetry.ChatRequests.WithLabelValues("rejected").Inc()
			telemetry.GuardrailRejections.WithLabelValues(outcome.Reason).Inc()
			if !emit(ctx, out, newChunk(model, rejectionMessage(outcome.Reason, true), "assistant", "")) {
				return
			}
			emit(ctx, out, newChunk(model, "", "", "stop"))
			return
		}

		fragments, provErr := s.provider.CompleteStream(ctx, s.modelFor(req), s.assemble(ctx, req.Messages))
		first := true
		for fragment := range fragments {
			role := ""
			if first {
				role = "assistant"
				first = false
			}
			if !emit(ctx, out, newChunk(model, fragment, role, "")) {
				return
			}
		}
		if err := <-provErr; err != nil {
			telemetry.ChatRequests.WithLabelValues("error").Inc()
			errCh <- fmt.Errorf("streaming completion: %w", err)
			return
		}
		telemetry.ChatRequests.WithLabelValues("ok").Inc()
		emit(ctx, out, newChunk(model, "", "", "stop"))
	}()

	return out, errCh
}

// modelFor maps the client-facing model name to the configured
// completion model; the "agent" alias always resolves to it.
func (s *Service) modelFor(req ChatCompletionRequest) string {
	if req.Model == "" || req.Model == "agent" {
		return s.model
	}
	return req.Model
}

// assemble converts the conversation to oracle messages, prepending a
// system message with retrieved reference material when available.
// Retrieval failures degrade to an unaugmented conversation.
func (s *Service) assemble(ctx context.Context, messages []ChatMessage) []provider.Message {
	converted := make([]provider.Message, 0, len(messages)+1)
	if s.retriever != nil {
		query := lastUserContent(messages)
		results, err := s.retriever.Search(ctx, query, nil, retrieval.DefaultTopK)
		if err != nil {
			s.logger.Printf("knowledge base lookup failed, answering without context: %v", err)
		} else if len(results) > 0 {
			converted = append(converted, provider.Message{Role: "system", Content: referenceContext(results)})
		}
	}
	for _, m := range messages {
		converted = append(converted, provider.Message{Role: m.Role, Content: m.Content})
	}
	return converted
}

func referenceContext(results []retrieval.Result) string {
	var b strings.Builder
	b.WriteString("You are an assistant for a medical office. Answer using the reference material below when it is relevant; otherwise answer from general knowledge about office procedures.\n")
	for _, r := range results {
		fmt.Fprintf(&b, "\n## %s / %s\n%s\n", r.Metadata.Procedure, r.Metadata.Type, r.Text)
	}
	return b.String()
}

// lastUserContent returns the content of the most recent user turn,
// falling back to the final message when no user turn exists.
func lastUserContent(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

func rejectionMessage(reason string, streaming bool) string {
	if reason == guardrail.ReasonJailbreak {
		if streaming {
			return jailbreakStreamMessage
		}
		return jailbreakReplyMessage
	}
	if streaming {
		return profanityStreamMessage
	}
	return profanityReplyMessage
}

func newChunk(model, content, role, finishReason string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      uuid.NewString(),
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChunkChoice{{
			Index:        0,
			Delta:        ChunkDelta{Role: role, Content: content},
			FinishReason: finishReason,
		}},
	}
}

func emit(ctx context.Context, out chan<- ChatCompletionChunk, chunk ChatCompletionChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
