package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/config"
	"github.com/bcgov/unity-ai/pkg/database"
	"github.com/bcgov/unity-ai/pkg/handlers"
	"github.com/bcgov/unity-ai/pkg/llm"
	"github.com/bcgov/unity-ai/pkg/logging"
	"github.com/bcgov/unity-ai/pkg/mcp"
	"github.com/bcgov/unity-ai/pkg/mcp/tools"
	"github.com/bcgov/unity-ai/pkg/metabase"
	"github.com/bcgov/unity-ai/pkg/middleware"
	"github.com/bcgov/unity-ai/pkg/prompts"
	"github.com/bcgov/unity-ai/pkg/repositories"
	"github.com/bcgov/unity-ai/pkg/schema"
	"github.com/bcgov/unity-ai/pkg/services"
	"github.com/bcgov/unity-ai/pkg/sqlgen"
	"github.com/bcgov/unity-ai/pkg/vectorstore"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("metabase_url", cfg.Metabase.URL),
		zap.String("ai_provider", cfg.AI.EffectiveProvider()),
		zap.Int("k_samples", cfg.AI.KSamples),
		zap.Strings("tenants", cfg.Tenants.IDs()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connString := cfg.Database.ConnectionString()
	if err := database.RunMigrations(connString, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connString,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	mb, err := metabase.NewClient(metabase.Config{
		URL:               cfg.Metabase.URL,
		APIKey:            cfg.Metabase.APIKey,
		EmbedSecret:       cfg.Metabase.EmbedSecret,
		Timeout:           cfg.Metabase.RequestTimeout,
		ValidationTimeout: cfg.Metabase.ValidationTimeout,
		PollInterval:      cfg.Metabase.PollInterval,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create Metabase client", zap.Error(err))
	}

	completion, err := llm.NewCompletionClient(cfg.AI.CompletionConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}
	embedder, err := llm.NewEmbedder(cfg.AI.EmbeddingConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	store, err := vectorstore.NewPGStore(ctx, vectorstore.Config{
		ConnString: connString,
		Collection: cfg.Retrieval.CollectionName,
	}, embedder, logger)
	if err != nil {
		logger.Fatal("Failed to connect vector store", zap.Error(err))
	}
	defer store.Close()

	examples, err := prompts.LoadExamples(cfg.Generation.ExamplesFile, logger)
	if err != nil {
		logger.Fatal("Failed to load examples", zap.Error(err))
	}
	shortcuts, err := sqlgen.LoadShortcuts(cfg.Generation.ShortcutsFile)
	if err != nil {
		logger.Fatal("Failed to load shortcuts", zap.Error(err))
	}

	pipeline := sqlgen.NewPipeline(sqlgen.Deps{
		Retriever: schema.NewRetriever(store, cfg.Retrieval.TopKPerCategory, logger),
		Builder:   prompts.NewBuilder(examples),
		LLM:       completion,
		Backend:   mb,
		Shortcuts: shortcuts,
	}, sqlgen.Config{
		KSamples:      cfg.AI.KSamples,
		Temperature:   cfg.AI.Temperature,
		MaxConcurrent: cfg.AI.EffectiveMaxConcurrent(),
		EnablePruning: cfg.Generation.EnablePruning,
	}, logger)
	indexer := schema.NewIndexer(schema.NewExtractor(mb, logger), store, logger)

	// Services
	backends := services.NewTenantBackends(cfg.Tenants, mb)
	chatRepo := repositories.NewChatRepository()
	feedbackRepo := repositories.NewFeedbackRepository()

	reportService := services.NewReportService(pipeline, backends, logger)
	chatService := services.NewChatService(chatRepo, backends, logger)
	feedbackService := services.NewFeedbackService(feedbackRepo, chatRepo, logger)
	embeddingService := services.NewEmbeddingService(indexer, cfg.Tenants, cfg.Retrieval.EmbedWorksheets, logger)

	// MCP
	mcpServer := mcp.NewServer("unity-ai", cfg.Version, logger)
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, cfg.Tenants)
	tools.RegisterReportTools(mcpServer.MCP(), &tools.ReportToolDeps{
		Generator: pipeline,
		Tenants:   cfg.Tenants,
		Logger:    logger,
	})

	// Routes
	mux := http.NewServeMux()
	authMiddleware := auth.NewMiddleware(logger)
	tenantMiddleware := database.WithTenantContext(db, logger)
	unscopedMiddleware := database.WithUnscopedContext(db, logger)

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewReportsHandler(reportService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewChatsHandler(chatService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewFeedbackHandler(feedbackService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware, unscopedMiddleware)
	handlers.NewAdminHandler(embeddingService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux, authMiddleware)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Metrics(middleware.RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting unity-ai",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
