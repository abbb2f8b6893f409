// embed-schemas rebuilds the schema embeddings used for retrieval.
//
// Every configured tenant database is re-indexed once: its stored
// descriptions are purged and regenerated from live Metabase metadata.
//
// Usage: go run ./scripts/embed-schemas [-tenant <id>]
//
// Configuration: reads config.yaml and the environment like the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/config"
	"github.com/bcgov/unity-ai/pkg/llm"
	"github.com/bcgov/unity-ai/pkg/logging"
	"github.com/bcgov/unity-ai/pkg/metabase"
	"github.com/bcgov/unity-ai/pkg/schema"
	"github.com/bcgov/unity-ai/pkg/services"
	"github.com/bcgov/unity-ai/pkg/vectorstore"
)

func main() {
	tenant := flag.String("tenant", "", "Re-embed only this tenant's database")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath, "embed-schemas")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *tenant, logger); err != nil {
		logger.Error("Embedding failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, tenant string, logger *zap.Logger) error {
	mb, err := metabase.NewClient(metabase.Config{
		URL:               cfg.Metabase.URL,
		APIKey:            cfg.Metabase.APIKey,
		Timeout:           cfg.Metabase.RequestTimeout,
		ValidationTimeout: cfg.Metabase.ValidationTimeout,
		PollInterval:      cfg.Metabase.PollInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("metabase client: %w", err)
	}

	embedder, err := llm.NewEmbedder(cfg.AI.EmbeddingConfig(), logger)
	if err != nil {
		return fmt.Errorf("embedding client: %w", err)
	}

	store, err := vectorstore.NewPGStore(ctx, vectorstore.Config{
		ConnString: cfg.Database.ConnectionString(),
		Collection: cfg.Retrieval.CollectionName,
	}, embedder, logger)
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	defer store.Close()

	indexer := schema.NewIndexer(schema.NewExtractor(mb, logger), store, logger)
	svc := services.NewEmbeddingService(indexer, cfg.Tenants, cfg.Retrieval.EmbedWorksheets, logger)

	var results []*schema.IndexResult
	if tenant != "" {
		result, err := svc.EmbedTenant(ctx, tenant)
		if err != nil {
			return err
		}
		results = append(results, result)
	} else {
		results, err = svc.EmbedAll(ctx)
		if err != nil {
			return err
		}
	}

	for _, r := range results {
		fmt.Printf("db %d: purged %d, added %v\n", r.DBID, r.Purged, r.Added)
	}
	return nil
}
