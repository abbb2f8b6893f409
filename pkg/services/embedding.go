package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/config"
	"github.com/bcgov/unity-ai/pkg/schema"
)

// SchemaIndexer rebuilds the searchable schema descriptions of one database.
type SchemaIndexer interface {
	Reindex(ctx context.Context, dbID int, categories []string) (*schema.IndexResult, error)
}

// EmbeddingService refreshes schema embeddings for configured tenants.
type EmbeddingService interface {
	// EmbedTenant re-embeds the schema of one tenant's database.
	EmbedTenant(ctx context.Context, tenantID string) (*schema.IndexResult, error)

	// EmbedAll re-embeds every distinct tenant database once.
	EmbedAll(ctx context.Context) ([]*schema.IndexResult, error)
}

type embeddingService struct {
	indexer        SchemaIndexer
	tenants        *config.Tenants
	withWorksheets bool
	logger         *zap.Logger
}

// NewEmbeddingService creates a new EmbeddingService. When withWorksheets is
// false the custom worksheet category is never embedded.
func NewEmbeddingService(indexer SchemaIndexer, tenants *config.Tenants, withWorksheets bool, logger *zap.Logger) EmbeddingService {
	return &embeddingService{
		indexer:        indexer,
		tenants:        tenants,
		withWorksheets: withWorksheets,
		logger:         logger.Named("embedding"),
	}
}

var _ EmbeddingService = (*embeddingService)(nil)

func (s *embeddingService) EmbedTenant(ctx context.Context, tenantID string) (*schema.IndexResult, error) {
	tenant := s.tenants.Get(tenantID)
	return s.embed(ctx, tenant)
}

func (s *embeddingService) EmbedAll(ctx context.Context) ([]*schema.IndexResult, error) {
	ids := s.tenants.IDs()
	sort.Strings(ids)

	seen := make(map[int]bool, len(ids))
	results := make([]*schema.IndexResult, 0, len(ids))
	for _, id := range ids {
		tenant := s.tenants.Get(id)
		if seen[tenant.DBID] {
			continue
		}
		seen[tenant.DBID] = true

		result, err := s.embed(ctx, tenant)
		if err != nil {
			return results, fmt.Errorf("tenant %s: %w", id, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *embeddingService) embed(ctx context.Context, tenant config.Tenant) (*schema.IndexResult, error) {
	categories := s.categories(tenant.SchemaTypes)

	s.logger.Info("Embedding schema",
		zap.Int("db_id", tenant.DBID),
		zap.Strings("categories", categories))

	return s.indexer.Reindex(ctx, tenant.DBID, categories)
}

func (s *embeddingService) categories(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t == schema.CategoryCustom && !s.withWorksheets {
			continue
		}
		out = append(out, t)
	}
	return out
}
