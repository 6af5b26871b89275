package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"parley/internal/auth"
	"parley/internal/capabilities"
	"parley/internal/config"
	"parley/internal/export"
	"parley/internal/handler"
	"parley/internal/handler/sse"
	"parley/internal/middleware"
	"parley/internal/repository/postgres"
	postgresChat "parley/internal/repository/postgres/chat"
	chatsvc "parley/internal/service/chat"
	"parley/internal/service/chat/providers/mistral"
	openaiprovider "parley/internal/service/chat/providers/openai"
	"parley/internal/service/chat/tools"
	"parley/internal/service/retrieval"
	"parley/internal/storage"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		logFile, err := config.SetupLogFile(dir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer func() { _ = logFile.Close() }()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	threadRepo := postgresChat.NewThreadRepository(repoConfig)
	messageRepo := postgresChat.NewMessageRepository(repoConfig)
	extensionRepo := postgresChat.NewExtensionRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	logger.Info("capability registry initialized")

	// Vendor clients
	openaiClient := openaiprovider.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	mistralClient := mistral.NewClient(cfg.MistralAPIKey, cfg.MistralBaseURL)

	weaviateClient, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	})
	if err != nil {
		log.Fatalf("Failed to create weaviate client: %v", err)
	}

	// Retrieval
	searcher := retrieval.NewWeaviateSearcher(
		weaviateClient,
		openaiClient,
		cfg.WeaviateClass,
		cfg.EmbeddingsModel,
		logger,
	)

	// Tool collaborators
	imageStore := storage.NewLocalImageStore(cfg.ImageStoreDir, cfg.PublicBaseURL, logger)
	deckClient := export.NewDeckClient(cfg.DeckServiceURL, cfg.DeckServiceKey)

	toolConfig := tools.DefaultToolConfig()
	toolConfig.ImageModel = cfg.DALLEModel
	toolRegistry := tools.NewRegistry(
		tools.NewImageTool(openaiClient, imageStore, toolConfig, logger),
		tools.NewDeckTool(deckClient, logger),
		tools.NewDynamicTools(extensionRepo, toolConfig, logger),
		logger,
	)

	// Provider adapters, one per calling convention
	streams := chatsvc.StreamSet{
		Completions: openaiprovider.NewCompletionsStream(openaiClient, logger),
		Responses:   openaiprovider.NewResponsesStream(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger),
		Assistant:   openaiprovider.NewAssistantStream(openaiClient, cfg.AssistantID, logger),
		External:    mistral.NewStream(mistralClient, logger),
	}

	// Chat services
	assembler := chatsvc.NewAssembler(messageRepo, searcher, logger)
	inferenceService := chatsvc.NewInferenceService(
		threadRepo,
		messageRepo,
		extensionRepo,
		capabilityRegistry,
		assembler,
		toolRegistry,
		streams,
		logger,
	)
	threadService := chatsvc.NewThreadService(threadRepo, messageRepo, capabilityRegistry, txManager, logger)

	// Handlers (follow Clean Architecture - no repository access)
	inferenceHandler := handler.NewInferenceHandler(inferenceService, sse.DefaultConfig(), logger)
	threadHandler := handler.NewThreadHandler(threadService, logger)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)
	imagesHandler := handler.NewImagesHandler(imageStore, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Inference route
	mux.HandleFunc("POST /api/chat", inferenceHandler.Chat)

	// Thread routes
	mux.HandleFunc("POST /api/threads", threadHandler.CreateThread)
	mux.HandleFunc("GET /api/threads", threadHandler.ListThreads)
	mux.HandleFunc("GET /api/threads/{id}", threadHandler.GetThread)
	mux.HandleFunc("PATCH /api/threads/{id}", threadHandler.UpdateThread)
	mux.HandleFunc("DELETE /api/threads/{id}", threadHandler.DeleteThread)
	mux.HandleFunc("GET /api/threads/{id}/messages", threadHandler.ListMessages)
	mux.HandleFunc("DELETE /api/threads/{threadID}/messages/{id}", threadHandler.DeleteMessage)

	// Model capabilities
	mux.HandleFunc("GET /api/models", modelsHandler.GetCapabilities)

	// Generated images
	mux.HandleFunc("GET /api/images/{threadID}/{name}", imagesHandler.ServeImage)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(jwtVerifier, logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
