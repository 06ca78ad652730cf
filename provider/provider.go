package provider

import (
	"context"
	"errors"

	"github.com/practisage/medassist/config"
	openai_provider "github.com/practisage/medassist/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Message is one turn of a conversation sent to the completion oracle.
type Message = openai_provider.Message

// Provider is the interface that all oracle implementations must satisfy.
// Complete and CompleteJSON are single round-trips; CompleteStream delivers
// the completion as incremental content fragments on the returned channel,
// closing it when the oracle is done or ctx is cancelled.
type Provider interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
	CompleteJSON(ctx context.Context, model string, messages []Message) (string, error)
	CompleteStream(ctx context.Context, model string, messages []Message) (<-chan string, <-chan error)
	CreateEmbedding(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// NewProvider creates a new oracle client based on the provided configuration
func NewProvider(client Client, cfg config.OpenAIConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewOpenAIClient(cfg), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
