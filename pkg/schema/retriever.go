package schema

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/retry"
	"github.com/bcgov/unity-ai/pkg/vectorstore"
)

// DefaultTopK is how many snippets are fetched per category.
const DefaultTopK = 4

// Retriever finds the table descriptions most similar to a question.
type Retriever struct {
	store    vectorstore.Searcher
	topK     int
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewRetriever creates a Retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(store vectorstore.Searcher, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		store:    store,
		topK:     topK,
		retryCfg: retry.ConnectionConfig(),
		logger:   logger.Named("schema-retriever"),
	}
}

// WithRetryDelays overrides the reconnect backoff. Tests use it to avoid sleeping.
func (r *Retriever) WithRetryDelays(initial, maxDelay time.Duration) *Retriever {
	cfg := *r.retryCfg
	cfg.InitialDelay = initial
	cfg.MaxDelay = maxDelay
	r.retryCfg = &cfg
	return r
}

// Retrieve runs one similarity search per category and concatenates the
// results in category order. Repeated content is kept once.
func (r *Retriever) Retrieve(ctx context.Context, question string, dbID int, categories []string) ([]Snippet, error) {
	snippets := []Snippet{}
	seen := make(map[string]bool)

	for _, category := range categories {
		docs, err := r.search(ctx, question, dbID, category)
		if err != nil {
			return nil, fmt.Errorf("retrieve %s schemas for db %d: %w", category, dbID, err)
		}

		for _, doc := range docs {
			if seen[doc.Content] {
				continue
			}
			seen[doc.Content] = true
			snippets = append(snippets, Snippet{
				Content:  doc.Content,
				DBID:     doc.Metadata.DBID,
				Category: doc.Metadata.Category,
			})
		}
	}

	r.logger.Debug("Retrieved schema snippets",
		zap.Int("db_id", dbID),
		zap.Strings("categories", categories),
		zap.Int("count", len(snippets)))

	return snippets, nil
}

func (r *Retriever) search(ctx context.Context, question string, dbID int, category string) ([]vectorstore.Document, error) {
	cfg := *r.retryCfg
	cfg.Retryable = vectorstore.IsConnectionError
	cfg.OnRetry = func(ctx context.Context, attempt int, err error) error {
		r.logger.Warn("Vector store connection failed, reconnecting",
			zap.Int("attempt", attempt),
			zap.Error(err))
		if reconnectErr := r.store.Reconnect(ctx); reconnectErr != nil {
			r.logger.Warn("Vector store reconnect failed", zap.Error(reconnectErr))
		}
		return nil
	}

	return retry.DoWithResult(ctx, &cfg, func() ([]vectorstore.Document, error) {
		return r.store.SimilaritySearch(ctx, question, r.topK, vectorstore.Filter{DBID: dbID, Category: category})
	})
}
