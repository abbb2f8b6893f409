package schema

import (
	"context"
	"strings"
	"sync"

	"github.com/bcgov/unity-ai/pkg/metabase"
	"github.com/bcgov/unity-ai/pkg/vectorstore"
)

type mockSearcher struct {
	SimilaritySearchFunc func(ctx context.Context, query string, k int, filter vectorstore.Filter) ([]vectorstore.Document, error)
	ReconnectFunc        func(ctx context.Context) error

	mu         sync.Mutex
	searches   []vectorstore.Filter
	reconnects int
}

func (m *mockSearcher) SimilaritySearch(ctx context.Context, query string, k int, filter vectorstore.Filter) ([]vectorstore.Document, error) {
	m.mu.Lock()
	m.searches = append(m.searches, filter)
	m.mu.Unlock()
	if m.SimilaritySearchFunc != nil {
		return m.SimilaritySearchFunc(ctx, query, k, filter)
	}
	return nil, nil
}

func (m *mockSearcher) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	m.reconnects++
	m.mu.Unlock()
	if m.ReconnectFunc != nil {
		return m.ReconnectFunc(ctx)
	}
	return nil
}

// fakeSource answers probe and example queries from an in-memory table map.
type fakeSource struct {
	metadata *metabase.DatabaseMetadata
	// rows maps "schema"."table" to its first row keyed by column.
	rows    map[string]map[string]any
	failing map[string]bool

	mu      sync.Mutex
	queries []string
}

func (f *fakeSource) GetDatabaseMetadata(_ context.Context, _ int) (*metabase.DatabaseMetadata, error) {
	return f.metadata, nil
}

func (f *fakeSource) ExecuteSQL(_ context.Context, sql string, _ int) (*metabase.DatasetResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	f.mu.Unlock()

	from := sql[strings.Index(sql, " FROM ")+6:]
	ref := strings.Fields(from)[0]
	if f.failing[ref] {
		return nil, errBoom
	}
	row, ok := f.rows[ref]
	if !ok {
		return &metabase.DatasetResult{}, nil
	}

	if strings.HasPrefix(sql, "SELECT * ") {
		return &metabase.DatasetResult{Rows: [][]any{{1}}}, nil
	}
	col := strings.Trim(strings.Fields(sql)[1], `"`)
	v, ok := row[col]
	if !ok || v == nil {
		return &metabase.DatasetResult{}, nil
	}
	return &metabase.DatasetResult{Rows: [][]any{{v}}}, nil
}

type stubStore struct {
	added      []vectorstore.Document
	purgedDB   int
	purgeCount int64
	addErr     error
}

func (s *stubStore) AddDocuments(_ context.Context, docs []vectorstore.Document) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, docs...)
	return nil
}

func (s *stubStore) Purge(_ context.Context, dbID int) (int64, error) {
	s.purgedDB = dbID
	return s.purgeCount, nil
}
