package schema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/vectorstore"
)

var errBoom = errors.New("boom")

func doc(content, category string) vectorstore.Document {
	return vectorstore.Document{Content: content, Metadata: vectorstore.Metadata{DBID: 5, Category: category}}
}

func TestRetriever_ConcatenatesCategoriesInOrder(t *testing.T) {
	store := &mockSearcher{
		SimilaritySearchFunc: func(_ context.Context, _ string, k int, f vectorstore.Filter) ([]vectorstore.Document, error) {
			assert.Equal(t, 4, k)
			assert.Equal(t, 5, f.DBID)
			if f.Category == CategoryPublic {
				return []vectorstore.Document{doc("A", "public"), doc("B", "public")}, nil
			}
			return []vectorstore.Document{doc("W", "custom")}, nil
		},
	}

	r := NewRetriever(store, 0, zap.NewNop())
	snippets, err := r.Retrieve(context.Background(), "q", 5, []string{CategoryPublic, CategoryCustom})
	require.NoError(t, err)

	require.Len(t, snippets, 3)
	assert.Equal(t, "A", snippets[0].Content)
	assert.Equal(t, "B", snippets[1].Content)
	assert.Equal(t, "W", snippets[2].Content)
	assert.Equal(t, CategoryCustom, snippets[2].Category)
	assert.Equal(t, "A\nB\nW", Format(snippets))
}

func TestRetriever_DeduplicatesContent(t *testing.T) {
	store := &mockSearcher{
		SimilaritySearchFunc: func(context.Context, string, int, vectorstore.Filter) ([]vectorstore.Document, error) {
			return []vectorstore.Document{doc("A", "public"), doc("A", "public"), doc("B", "public")}, nil
		},
	}

	snippets, err := NewRetriever(store, 4, zap.NewNop()).Retrieve(context.Background(), "q", 5, []string{CategoryPublic, CategoryCustom})
	require.NoError(t, err)
	assert.Equal(t, "A\nB", Format(snippets))
}

func TestRetriever_NoMatchesIsEmptyNotError(t *testing.T) {
	snippets, err := NewRetriever(&mockSearcher{}, 4, zap.NewNop()).Retrieve(context.Background(), "q", 5, []string{CategoryPublic})
	require.NoError(t, err)
	assert.NotNil(t, snippets)
	assert.Empty(t, snippets)
}

func TestRetriever_ReconnectsOnConnectionError(t *testing.T) {
	calls := 0
	store := &mockSearcher{
		SimilaritySearchFunc: func(context.Context, string, int, vectorstore.Filter) ([]vectorstore.Document, error) {
			calls++
			if calls < 3 {
				return nil, &pgconn.PgError{Code: "08006"}
			}
			return []vectorstore.Document{doc("A", "public")}, nil
		},
	}

	r := NewRetriever(store, 4, zap.NewNop()).WithRetryDelays(time.Millisecond, time.Millisecond)
	snippets, err := r.Retrieve(context.Background(), "q", 5, []string{CategoryPublic})
	require.NoError(t, err)
	assert.Len(t, snippets, 1)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, store.reconnects)
}

func TestRetriever_GivesUpAfterThreeRetries(t *testing.T) {
	calls := 0
	store := &mockSearcher{
		SimilaritySearchFunc: func(context.Context, string, int, vectorstore.Filter) ([]vectorstore.Document, error) {
			calls++
			return nil, &pgconn.PgError{Code: "08006"}
		},
		ReconnectFunc: func(context.Context) error { return errBoom },
	}

	r := NewRetriever(store, 4, zap.NewNop()).WithRetryDelays(time.Millisecond, time.Millisecond)
	_, err := r.Retrieve(context.Background(), "q", 5, []string{CategoryPublic})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 3, store.reconnects)
}

func TestRetriever_NonConnectionErrorIsNotRetried(t *testing.T) {
	calls := 0
	store := &mockSearcher{
		SimilaritySearchFunc: func(context.Context, string, int, vectorstore.Filter) ([]vectorstore.Document, error) {
			calls++
			return nil, errBoom
		},
	}

	_, err := NewRetriever(store, 4, zap.NewNop()).Retrieve(context.Background(), "q", 5, []string{CategoryPublic})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
	assert.Zero(t, store.reconnects)
}

func TestConnectionRetrySchedule(t *testing.T) {
	r := NewRetriever(&mockSearcher{}, 4, zap.NewNop())
	assert.Equal(t,
		[]time.Duration{500 * time.Millisecond, time.Second, 1500 * time.Millisecond},
		r.retryCfg.Delays())
}
