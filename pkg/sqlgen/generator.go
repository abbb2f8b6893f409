package sqlgen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/llm"
	"github.com/bcgov/unity-ai/pkg/prompts"
)

// Generator requests independent completions of the same prompt.
type Generator struct {
	client      llm.LLMClient
	pool        *llm.WorkerPool
	temperature float64
	logger      *zap.Logger
}

// NewGenerator creates a Generator. The pool bounds in-flight requests.
func NewGenerator(client llm.LLMClient, pool *llm.WorkerPool, temperature float64, logger *zap.Logger) *Generator {
	return &Generator{
		client:      client,
		pool:        pool,
		temperature: temperature,
		logger:      logger.Named("sqlgen-generator"),
	}
}

// Generate dispatches k requests concurrently. Slot i holds the completion
// of dispatch i, or nil if that request failed. The call itself never fails.
func (g *Generator) Generate(ctx context.Context, prompt string, k int) []*Completion {
	items := make([]llm.WorkItem[*Completion], k)
	for i := range items {
		items[i] = llm.WorkItem[*Completion]{
			ID: fmt.Sprintf("completion-%d", i),
			Execute: func(ctx context.Context) (*Completion, error) {
				return g.complete(ctx, prompt, prompts.SQLSystemMessage, g.temperature)
			},
		}
	}

	results := llm.Process(ctx, g.pool, items, nil)

	out := make([]*Completion, k)
	for i, r := range results {
		if r.Err != nil {
			g.logger.Warn("Completion failed",
				zap.Int("index", i),
				zap.String("error_type", string(llm.GetErrorType(r.Err))),
				zap.Error(r.Err))
			candidateFailures.WithLabelValues(stageCompletion).Inc()
			continue
		}
		out[i] = r.Result
	}
	return out
}

// complete runs one request and maps an empty answer to an error.
func (g *Generator) complete(ctx context.Context, prompt, system string, temperature float64) (*Completion, error) {
	resp, err := g.client.GenerateResponse(ctx, prompt, system, temperature)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Content == "" {
		return nil, fmt.Errorf("empty completion")
	}
	usage := Usage{
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens,
	}
	completionTokens.Add(float64(usage.TotalTokens))
	return &Completion{Text: resp.Content, Usage: usage}, nil
}
