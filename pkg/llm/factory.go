package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewCompletionClient returns the chat client for cfg.Provider.
func NewCompletionClient(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	case ProviderOpenAI, ProviderAzure, "":
		return NewClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewEmbedder returns an embedding client. Anthropic has no embedding API,
// so embeddings always go through an OpenAI-compatible endpoint.
func NewEmbedder(cfg *Config, logger *zap.Logger) (Embedder, error) {
	if cfg.Provider == ProviderAnthropic {
		return nil, fmt.Errorf("provider %q cannot create embeddings", cfg.Provider)
	}
	return NewClient(cfg, logger)
}
