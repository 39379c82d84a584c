package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"searchsync/internal/auth"
	"searchsync/internal/config"
	"searchsync/internal/contentcache"
	"searchsync/internal/filesearch"
	"searchsync/internal/handler"
	"searchsync/internal/middleware"
	"searchsync/internal/mimetypes"
	"searchsync/internal/repository/postgres"
	"searchsync/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, config.MaxLogFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
	)

	// Optional bearer auth; a nil verifier runs the server in anonymous mode
	var jwtVerifier auth.JWTVerifier
	if cfg.AuthJWKSURL != "" {
		verifier, err := auth.NewJWTVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
		jwtVerifier = verifier
	} else {
		logger.Warn("AUTH_JWKS_URL not set, running in anonymous mode")
	}

	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	ctx := context.Background()

	// Apply schema migrations before opening the pool
	if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	logger.Info("migrations applied")

	// Create pgx connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(),
		Logger: logger,
	}
	storeRepo := postgres.NewFilestoreRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Remote index client, content cache and MIME overrides
	searchClient := filesearch.New(cfg.FileSearchBaseURL, cfg.FileSearchAPIKey)
	cache := contentcache.New(cfg.CacheDir)
	mimeRegistry, err := mimetypes.NewRegistry(cfg.UploadMIMETypes)
	if err != nil {
		log.Fatalf("Failed to load MIME overrides: %v", err)
	}

	// Create services
	worker := service.NewUploadWorker(docRepo, storeRepo, searchClient, cache, mimeRegistry, cfg.WorkerPollTimeout, logger)
	filestoreService := service.NewFilestoreService(storeRepo, docRepo, searchClient, txManager, logger)
	docService := service.NewDocumentService(docRepo, storeRepo, searchClient, cache, worker, txManager, logger)
	reconcileService := service.NewReconcileService(docRepo, storeRepo, searchClient, logger)

	// Create handlers
	filestoreHandler := handler.NewFilestoreHandler(filestoreService, reconcileService, logger)
	docHandler := handler.NewDocumentHandler(docService, logger)
	cacheHandler := handler.NewCacheHandler(cache, logger)
	workerHandler := handler.NewWorkerHandler(worker, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /api/health", docHandler.HealthCheck)

	// Filestore routes
	mux.HandleFunc("POST /api/filestores", filestoreHandler.Create)
	mux.HandleFunc("GET /api/filestores", filestoreHandler.List)
	mux.HandleFunc("GET /api/filestores/{storeID}", filestoreHandler.Get)
	mux.HandleFunc("DELETE /api/filestores/{storeID}", filestoreHandler.Delete)
	mux.HandleFunc("POST /api/filestores/{storeID}/sync", filestoreHandler.Sync)

	// Store-scoped document routes
	mux.HandleFunc("POST /api/filestores/{storeID}/upload", docHandler.Upload)
	mux.HandleFunc("GET /api/filestores/{storeID}/documents", docHandler.ListRemote)
	mux.HandleFunc("GET /api/filestores/{storeID}/categories", docHandler.Categories)

	// Document routes
	mux.HandleFunc("GET /api/documents", docHandler.Query)
	mux.HandleFunc("GET /api/documents/{documentID}", docHandler.Get)
	mux.HandleFunc("DELETE /api/documents/{documentID}", docHandler.Delete)
	mux.HandleFunc("POST /api/documents/{documentID}/retry", docHandler.Retry)

	// Worker routes
	mux.HandleFunc("POST /api/worker/kick", workerHandler.Kick)

	// Cached content
	mux.HandleFunc("GET /~cache/{shard}/{filename}", cacheHandler.Serve)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // uploads and sync passes can run long
		IdleTimeout:  60 * time.Second,
	}

	// Drain documents left pending by a previous shutdown
	if worker.Kick() {
		logger.Info("startup upload run kicked")
	}

	// Start server
	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("shutting down")

	// Stop the worker after its current document, then drain connections
	worker.Stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		logger.Error("shutdown did not drain cleanly", "error", err)
	}

	logger.Info("server stopped")
}
