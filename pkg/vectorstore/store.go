// Package vectorstore keeps schema snippets with their embeddings in
// PostgreSQL (pgvector) and answers similarity queries over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/llm"
)

// Metadata tags a document with its source database and schema category.
type Metadata struct {
	DBID     int    `json:"db_id"`
	Category string `json:"schema_type"`
}

// Document is a stored text chunk.
type Document struct {
	Content  string
	Metadata Metadata
}

// Filter restricts a similarity search. Zero fields match everything.
type Filter struct {
	DBID     int
	Category string
}

// Searcher is the read side used at question time.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int, filter Filter) ([]Document, error)
	// Reconnect replaces the underlying connection after a connection failure.
	Reconnect(ctx context.Context) error
}

// PGStore is a pgvector-backed document store.
type PGStore struct {
	mu         sync.RWMutex
	pool       *pgxpool.Pool
	connString string
	collection string
	embedder   llm.Embedder
	logger     *zap.Logger

	dial func(ctx context.Context, maxConns int32) (*pgxpool.Pool, error)
}

// EmbedError marks a failure computing an embedding, as opposed to a
// failure talking to the database.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string { return "embed: " + e.Err.Error() }

func (e *EmbedError) Unwrap() error { return e.Err }

// Config configures a PGStore.
type Config struct {
	ConnString string
	Collection string
	MaxConns   int32
}

// NewPGStore connects to PostgreSQL. The schema_embeddings table comes from migrations.
func NewPGStore(ctx context.Context, cfg Config, embedder llm.Embedder, logger *zap.Logger) (*PGStore, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	s := &PGStore{
		connString: cfg.ConnString,
		collection: cfg.Collection,
		embedder:   embedder,
		logger:     logger.Named("vectorstore"),
	}
	s.dial = s.connect
	pool, err := s.dial(ctx, cfg.MaxConns)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

func (s *PGStore) connect(ctx context.Context, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(s.connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping vector store: %w", err)
	}
	return pool, nil
}

func (s *PGStore) currentPool() *pgxpool.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool
}

// Reconnect swaps in a fresh pool and closes the old one. When another
// caller replaced the pool while this one was dialing, the fresh pool is
// discarded and the newer one kept.
func (s *PGStore) Reconnect(ctx context.Context) error {
	old := s.currentPool()
	var maxConns int32
	if old != nil {
		maxConns = old.Config().MaxConns
	}

	pool, err := s.dial(ctx, maxConns)
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	s.mu.Lock()
	if s.pool != old {
		s.mu.Unlock()
		pool.Close()
		s.logger.Debug("Vector store already reconnected")
		return nil
	}
	s.pool = pool
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.logger.Info("Reconnected to vector store")
	return nil
}

// Close releases the pool.
func (s *PGStore) Close() {
	if pool := s.currentPool(); pool != nil {
		pool.Close()
	}
}

// AddDocuments embeds and stores docs in one batch.
func (s *PGStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", &EmbedError{Err: err})
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(docs))
	}

	batch := &pgx.Batch{}
	for i, d := range docs {
		batch.Queue(`INSERT INTO schema_embeddings (id, collection, db_id, category, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6::vector)`,
			uuid.New(), s.collection, d.Metadata.DBID, d.Metadata.Category, d.Content, VectorLiteral(vectors[i]))
	}

	if err := s.currentPool().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}

	s.logger.Info("Stored documents", zap.Int("count", len(docs)), zap.String("collection", s.collection))
	return nil
}

// SimilaritySearch returns up to k documents nearest to query by cosine distance.
func (s *PGStore) SimilaritySearch(ctx context.Context, query string, k int, filter Filter) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", &EmbedError{Err: err})
	}

	sql, args := searchQuery(s.collection, VectorLiteral(vector), k, filter)
	rows, err := s.currentPool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Content, &d.Metadata.DBID, &d.Metadata.Category); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return docs, nil
}

func searchQuery(collection, vector string, k int, filter Filter) (string, []any) {
	args := []any{vector, collection}
	where := []string{"collection = $2"}
	if filter.DBID != 0 {
		args = append(args, filter.DBID)
		where = append(where, "db_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, "category = $"+strconv.Itoa(len(args)))
	}
	args = append(args, k)

	sql := `SELECT content, db_id, category FROM schema_embeddings WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY embedding <=> $1::vector LIMIT $` + strconv.Itoa(len(args))
	return sql, args
}

// Purge deletes every document stored for dbID in this collection.
func (s *PGStore) Purge(ctx context.Context, dbID int) (int64, error) {
	tag, err := s.currentPool().Exec(ctx,
		`DELETE FROM schema_embeddings WHERE collection = $1 AND db_id = $2`, s.collection, dbID)
	if err != nil {
		return 0, fmt.Errorf("purge db %d: %w", dbID, err)
	}
	return tag.RowsAffected(), nil
}

// VectorLiteral renders v in pgvector's text input format, e.g. "[0.1,0.2]".
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// IsConnectionError reports whether err means the database was unreachable
// or the connection dropped, as opposed to a query the server rejected.
// Embedding failures never count, whatever their cause.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var embedErr *EmbedError
	if errors.As(err, &embedErr) {
		return false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception; 57P01-03: admin shutdown / cannot connect now.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, pgx.ErrTxClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "broken pipe", "conn closed", "closed pool", "unexpected eof"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

var _ Searcher = (*PGStore)(nil)
