package schema

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/vectorstore"
)

// DocumentStore is the write side of the vector store.
type DocumentStore interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) error
	Purge(ctx context.Context, dbID int) (int64, error)
}

// IndexResult summarises one reindex run.
type IndexResult struct {
	DBID   int            `json:"db_id"`
	Purged int64          `json:"purged"`
	Added  map[string]int `json:"added"`
}

// Indexer replaces a database's stored schema descriptions.
type Indexer struct {
	extractor *Extractor
	store     DocumentStore
	logger    *zap.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(extractor *Extractor, store DocumentStore, logger *zap.Logger) *Indexer {
	return &Indexer{
		extractor: extractor,
		store:     store,
		logger:    logger.Named("schema-indexer"),
	}
}

// Reindex purges every description stored for dbID, then extracts and
// embeds each category in turn.
func (ix *Indexer) Reindex(ctx context.Context, dbID int, categories []string) (*IndexResult, error) {
	purged, err := ix.store.Purge(ctx, dbID)
	if err != nil {
		return nil, err
	}

	result := &IndexResult{DBID: dbID, Purged: purged, Added: make(map[string]int)}
	ix.logger.Info("Embedding schemas",
		zap.Int("db_id", dbID),
		zap.Strings("categories", categories),
		zap.Int64("purged", purged))

	for _, category := range categories {
		pages, err := ix.extractor.Extract(ctx, dbID, category)
		if err != nil {
			return result, fmt.Errorf("extract %s schemas: %w", category, err)
		}

		docs := make([]vectorstore.Document, 0, len(pages))
		for _, page := range pages {
			docs = append(docs, vectorstore.Document{
				Content:  strings.TrimSpace(page),
				Metadata: vectorstore.Metadata{DBID: dbID, Category: category},
			})
		}
		if len(docs) == 0 {
			continue
		}

		if err := ix.store.AddDocuments(ctx, docs); err != nil {
			return result, fmt.Errorf("store %s schemas: %w", category, err)
		}
		result.Added[category] = len(docs)
		ix.logger.Info("Added schema embeddings",
			zap.String("category", category),
			zap.Int("count", len(docs)))
	}

	return result, nil
}
