package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kampusasistani/rag/internal/answer"
	"github.com/kampusasistani/rag/internal/auth"
	"github.com/kampusasistani/rag/internal/blob"
	"github.com/kampusasistani/rag/internal/classify"
	"github.com/kampusasistani/rag/internal/config"
	"github.com/kampusasistani/rag/internal/conversation"
	"github.com/kampusasistani/rag/internal/embedder"
	"github.com/kampusasistani/rag/internal/extract"
	"github.com/kampusasistani/rag/internal/ingestion"
	"github.com/kampusasistani/rag/internal/llm"
	"github.com/kampusasistani/rag/internal/pdf"
	"github.com/kampusasistani/rag/internal/planner"
	"github.com/kampusasistani/rag/internal/registry/postgres"
	"github.com/kampusasistani/rag/internal/reranker"
	"github.com/kampusasistani/rag/internal/retriever"
	"github.com/kampusasistani/rag/internal/server"
	"github.com/kampusasistani/rag/internal/service"
	"github.com/kampusasistani/rag/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting regulation assistant",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	documentRepo := postgres.NewDocumentRepo(db)
	queryLogRepo := postgres.NewQueryLogRepo(db)

	// Initialize Qdrant vector store
	store, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()
	slog.Info("connected to Qdrant", "collection", cfg.QdrantCollection)

	// Initialize Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	if err := store.EnsureCollection(ctx, embed.Dimension()); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	// Initialize LLM client, wrapped with rate-limit retries
	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		return err
	}
	llmClient = llm.NewRetryClient(llmClient, cfg.LLMRetryAttempts, cfg.LLMRetryBackoff)

	// Ingestion pipeline
	classifier := classify.NewLayoutClassifier(classify.Config{
		SamplePages:   cfg.ClassifySamplePages,
		ColumnBuckets: cfg.ClassifyColumnBuckets,
		BucketMinRows: cfg.ClassifyBucketMinRows,
		DrawOpLimit:   cfg.ClassifyDrawOpLimit,
	})
	renderer := pdf.NewPopplerRenderer(cfg.PdftoppmPath, cfg.RenderDPI)
	structured := extract.NewStructuredExtractor(renderer, llmClient, cfg.PageDelay)
	chunker := ingestion.NewChunker(ingestion.ChunkerConfig{
		TargetSize:      cfg.ChunkTargetBytes,
		Overlap:         cfg.ChunkOverlapBytes,
		MaxPayloadBytes: cfg.ChunkMaxPayloadBytes,
	})
	indexer := ingestion.NewIndexer(embed, store, cfg.EmbedBatchSize, cfg.BatchDelay)
	pipeline := ingestion.NewPipeline(classifier, extract.FastExtractor{}, structured, chunker, indexer, documentRepo)

	blobs, err := blob.NewFileStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to initialize upload storage: %w", err)
	}

	// Query pipeline
	queryPlanner := planner.NewLLMPlanner(llmClient)
	hybridRetriever := retriever.New(embed, store, retriever.Config{
		K:         cfg.RetrieveK,
		FetchK:    cfg.RetrieveFetchK,
		Lambda:    cfg.MMRLambda,
		MergedCap: cfg.MergedCandidateCap,
	})
	llmReranker := reranker.NewLLMReranker(llmClient, slog.Default())
	synthesizer := answer.NewLLMSynthesizer(llmClient, slog.Default())

	// Services
	documents := service.NewDocumentService(blobs, pipeline, documentRepo, slog.Default())
	assistant := service.NewAssistantService(
		queryPlanner,
		hybridRetriever,
		llmReranker,
		synthesizer,
		conversation.DefaultStore(),
		queryLogRepo,
		cfg.RerankKeep,
		slog.Default(),
	)

	jwtManager := auth.NewJWTManager(&auth.JWTConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
	})

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:       cfg.HTTPPort,
		Logger:     slog.Default(),
		Documents:  documents,
		Assistant:  assistant,
		JWTManager: jwtManager,
		Credentials: map[string]server.Credential{
			cfg.AdminUser:   {Password: cfg.AdminPassword, Role: auth.RoleAdmin},
			cfg.StudentUser: {Password: cfg.StudentPassword, Role: auth.RoleStudent},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	// Wait for shutdown signal or server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	return httpServer.Shutdown(shutdownCtx)
}

// buildLLMClient selects the completion/vision backend from config.
func buildLLMClient(cfg *config.Config) (llm.LLM, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
		return llm.NewGeminiClient(cfg.GeminiAPIKey,
			llm.WithGeminiModel(cfg.GeminiModel),
			llm.WithGeminiVisionModel(cfg.GeminiVisionModel),
		), nil
	case "ollama":
		return llm.NewOllamaClient(
			llm.WithBaseURL(cfg.OllamaURL),
			llm.WithModel(cfg.OllamaLLMModel),
			llm.WithVisionModel(cfg.OllamaVisionModel),
		), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
