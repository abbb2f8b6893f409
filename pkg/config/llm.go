package config

import "github.com/bcgov/unity-ai/pkg/llm"

// CompletionConfig returns the chat client settings for the effective provider.
func (c *AIConfig) CompletionConfig() *llm.Config {
	switch c.EffectiveProvider() {
	case llm.ProviderAzure:
		return &llm.Config{
			Provider:   llm.ProviderAzure,
			Endpoint:   c.AzureEndpoint,
			Model:      c.AzureDeployment,
			APIKey:     c.AzureAPIKey,
			APIVersion: c.AzureAPIVersion,
		}
	case llm.ProviderAnthropic:
		return &llm.Config{
			Provider: llm.ProviderAnthropic,
			Endpoint: c.CompletionEndpoint,
			Model:    c.Model,
			APIKey:   c.AnthropicAPIKey,
		}
	default:
		return &llm.Config{
			Provider: llm.ProviderOpenAI,
			Endpoint: c.CompletionEndpoint,
			Model:    c.Model,
			APIKey:   c.CompletionKey,
		}
	}
}

// EmbeddingConfig returns the embedding client settings. Azure is used when
// its embedding deployment is configured, an OpenAI-compatible endpoint otherwise.
func (c *AIConfig) EmbeddingConfig() *llm.Config {
	if c.UseAzureEmbeddings() {
		return &llm.Config{
			Provider:       llm.ProviderAzure,
			Endpoint:       c.AzureEndpoint,
			Model:          c.AzureEmbeddingDeployment,
			APIKey:         c.AzureAPIKey,
			APIVersion:     c.AzureAPIVersion,
			EmbeddingModel: c.AzureEmbeddingDeployment,
		}
	}
	return &llm.Config{
		Provider:       llm.ProviderOpenAI,
		Endpoint:       c.CompletionEndpoint,
		Model:          c.EmbeddingModel,
		APIKey:         c.CompletionKey,
		EmbeddingModel: c.EmbeddingModel,
	}
}
