// Package llm provides chat completion and embedding clients for OpenAI,
// Azure OpenAI and Anthropic endpoints.
package llm

import (
	"context"
)

// LLMClient generates chat completions.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse returns the first choice of a single chat completion
	// together with its token usage.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Embedder turns text into embedding vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// GenerateResponseResult carries completion text and token accounting.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

var (
	_ LLMClient = (*Client)(nil)
	_ Embedder  = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
)
