// Package tagging derives document-wide and chunk-specific labels via
// the completion oracle.
package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/practisage/medassist/provider"
)

const (
	// ConsistentTagCount labels apply to every chunk of one document.
	ConsistentTagCount = 5
	// SpecificTagCount labels distinguish one chunk from its siblings.
	SpecificTagCount = 3
)

// Generator asks the completion oracle for tags, constrained to
// strict-JSON replies of the shape {"tags": [...]}.
type Generator struct {
	provider provider.Provider
	model    string
	logger   *log.Logger
}

// tagsReply is the labeled-array shape the oracle is instructed to emit.
type tagsReply struct {
	Tags []string `json:"tags"`
}

func NewGenerator(p provider.Provider, model string, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(log.Writer(), "[TAGS] ", log.LstdFlags)
	}
	return &Generator{provider: p, model: model, logger: logger}
}

// ConsistentTags generates five tags that apply to the entire document.
// One oracle call per document, sent the full text.
func (g *Generator) ConsistentTags(ctx context.Context, fullText string) ([]string, error) {
	messages := []provider.Message{
		{
			Role: "system",
			Content: fmt.Sprintf("You are a medical tagging assistant. Generate %d consistent tags that apply to the entire medical document. Respond with a JSON object containing a 'tags' array.",
				ConsistentTagCount),
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Text: %s\n\nGenerate consistent tags:", fullText),
		},
	}

	tags, err := g.requestTags(ctx, messages, ConsistentTagCount)
	if err != nil {
		return nil, fmt.Errorf("consistent tags: %w", err)
	}
	g.logger.Printf("consistent tags generated: %v", tags)
	return tags, nil
}

// SpecificTags generates three tags for one chunk. The oracle is told
// to avoid the already-chosen consistent tags; that is a prompting
// hint, not a guarantee, so callers must not assume disjointness.
func (g *Generator) SpecificTags(ctx context.Context, chunkText string, consistent []string) ([]string, error) {
	messages := []provider.Message{
		{
			Role: "system",
			Content: fmt.Sprintf("You are a medical tagging assistant. Generate %d specific tags for the given medical text chunk. These tags should be different from the consistent tags: %s. Respond with a JSON object containing a 'tags' array.",
				SpecificTagCount, strings.Join(consistent, ", ")),
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Text: %s\n\nGenerate specific tags:", chunkText),
		},
	}

	tags, err := g.requestTags(ctx, messages, SpecificTagCount)
	if err != nil {
		return nil, fmt.Errorf("specific tags: %w", err)
	}
	return tags, nil
}

func (g *Generator) requestTags(ctx context.Context, messages []provider.Message, want int) ([]string, error) {
	raw, err := g.provider.CompleteJSON(ctx, g.model, messages)
	if err != nil {
		return nil, err
	}
	var reply tagsReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("malformed tags reply: %w", err)
	}
	if len(reply.Tags) < want {
		return nil, fmt.Errorf("oracle returned %d tags, want %d", len(reply.Tags), want)
	}
	// Chatty models sometimes over-deliver; keep the fixed shape.
	return reply.Tags[:want], nil
}
