package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"kitab/internal/chat"
	"kitab/internal/config"
	"kitab/internal/drive"
	"kitab/internal/http"
	"kitab/internal/ingest"
	"kitab/internal/llm"
	"kitab/internal/rag"
	"kitab/internal/storage"
	"kitab/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	messageRepo := storage.NewMessageRepo(db)
	chatManager := chat.NewManager(
		messageRepo,
		cfg.RateLimit,
		time.Duration(cfg.RateWindowHours)*time.Hour,
		cfg.HistoryLimit,
	)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Create Gemini client for generation and embeddings
	llmClient, err := llm.NewClient(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, cfg.EmbeddingModel, cfg.QdrantVectorSize, 0)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}

	// Validate embedding vector size (fail-fast)
	testEmbeddings, err := llmClient.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Create ingestion pipeline
	processor, err := ingest.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create document processor: %v", err)
	}
	pipeline := ingest.NewPipeline(processor, llmClient, vectorStore, cfg.QdrantCollection, cfg.UploadDir)

	// Create RAG engine
	ragEngine := rag.NewEngine(llmClient, vectorStore, llmClient, cfg.QdrantCollection, cfg.TopK)
	slog.Info("RAG engine initialized", "top_k", cfg.TopK)

	// Google Drive is optional; without credentials the Drive endpoints
	// respond 503 and everything else works.
	var driveClient ingest.DriveClient
	if cfg.DriveCredentialsPath != "" {
		client, err := drive.NewClient(ctx, cfg.DriveCredentialsPath, cfg.DriveTokenPath)
		if err != nil {
			slog.Warn("Google Drive integration disabled", "error", err)
		} else {
			driveClient = client
			slog.Info("Google Drive client initialized")
		}
	}

	// Create router with dependencies
	deps := &http.Deps{
		DB:          db,
		Engine:      ragEngine,
		Chat:        chatManager,
		Limiter:     chatManager,
		Pipeline:    pipeline,
		DriveClient: driveClient,
		VectorStore: vectorStore,
		Collection:  cfg.QdrantCollection,
		VectorSize:  cfg.QdrantVectorSize,
		UploadDir:   cfg.UploadDir,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("Model configuration", "model", cfg.GeminiModel, "embedding_model", cfg.EmbeddingModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
