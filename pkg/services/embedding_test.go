package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/config"
)

func testTenants(t *testing.T) *config.Tenants {
	t.Helper()
	tenants, err := config.NewTenants(map[string]config.Tenant{
		config.DefaultTenant: {DBID: 5, CollectionID: 16, SchemaTypes: []string{"public"}},
		"alpha":              {DBID: 7, CollectionID: 20, SchemaTypes: []string{"public", "custom"}},
		"beta":               {DBID: 7, CollectionID: 21, SchemaTypes: []string{"public"}},
	})
	require.NoError(t, err)
	return tenants
}

func TestEmbeddingService_EmbedTenant(t *testing.T) {
	indexer := &fakeIndexer{}
	svc := NewEmbeddingService(indexer, testTenants(t), true, zap.NewNop())

	result, err := svc.EmbedTenant(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, 7, result.DBID)
	assert.Equal(t, []indexCall{{DBID: 7, Categories: []string{"public", "custom"}}}, indexer.calls)
}

func TestEmbeddingService_SkipsWorksheetsWhenDisabled(t *testing.T) {
	indexer := &fakeIndexer{}
	svc := NewEmbeddingService(indexer, testTenants(t), false, zap.NewNop())

	_, err := svc.EmbedTenant(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, indexer.calls[0].Categories)
}

func TestEmbeddingService_EmbedAll_OncePerDatabase(t *testing.T) {
	indexer := &fakeIndexer{}
	svc := NewEmbeddingService(indexer, testTenants(t), true, zap.NewNop())

	results, err := svc.EmbedAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	// sorted ids: alpha, beta, default; beta shares alpha's database
	assert.Equal(t, 7, indexer.calls[0].DBID)
	assert.Equal(t, 5, indexer.calls[1].DBID)
}

func TestEmbeddingService_EmbedAll_StopsOnError(t *testing.T) {
	indexer := &fakeIndexer{err: errBoom}
	svc := NewEmbeddingService(indexer, testTenants(t), true, zap.NewNop())

	_, err := svc.EmbedAll(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, indexer.calls, 1)
}
