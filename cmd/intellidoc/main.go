package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/intellidoc-ai/intellidoc/internal/chunker"
	"github.com/intellidoc-ai/intellidoc/internal/config"
	"github.com/intellidoc-ai/intellidoc/internal/db"
	dbRedis "github.com/intellidoc-ai/intellidoc/internal/db/redis"
	"github.com/intellidoc-ai/intellidoc/internal/domain"
	logpkg "github.com/intellidoc-ai/intellidoc/internal/logger"
	"github.com/intellidoc-ai/intellidoc/internal/metrics"
	"github.com/intellidoc-ai/intellidoc/internal/parser"
	documentrepo "github.com/intellidoc-ai/intellidoc/internal/repository/document"
	"github.com/intellidoc-ai/intellidoc/internal/repository/embcache"
	segmentrepo "github.com/intellidoc-ai/intellidoc/internal/repository/segment"
	chiTransport "github.com/intellidoc-ai/intellidoc/internal/transport/chi"
	openaiTransport "github.com/intellidoc-ai/intellidoc/internal/transport/openai"
	documentuc "github.com/intellidoc-ai/intellidoc/internal/usecase/document"
	embeddinguc "github.com/intellidoc-ai/intellidoc/internal/usecase/embedding"
	healthuc "github.com/intellidoc-ai/intellidoc/internal/usecase/health"
	ingestuc "github.com/intellidoc-ai/intellidoc/internal/usecase/ingest"
	retrievaluc "github.com/intellidoc-ai/intellidoc/internal/usecase/retrieval"
	"github.com/intellidoc-ai/intellidoc/internal/version"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting intellidoc API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.New(dbRedis.Config{
		InitAddress: cfg.Database.Addrs,
		Username:    cfg.Database.Username,
		Password:    cfg.Database.Password,
		SelectDB:    cfg.Database.SelectDB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	// Build embedder chain — composition root
	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	segRepo := segmentrepo.New(store, segmentrepo.IndexSettings{
		Model:              cfg.Embedding.Model,
		Dimensions:         cfg.Embedding.Dimensions,
		HNSWM:              cfg.Index.HNSWM,
		HNSWEFConstruction: cfg.Index.HNSWEFConstruct,
	})
	if err := segRepo.EnsureIndex(ctx); err != nil {
		if errors.Is(err, domain.ErrInvalidConfiguration) {
			logger.Fatal("Vector index was built for a different embedding configuration; "+
				"re-ingest with a fresh database or restore the original settings", zap.Error(err))
		}
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	docRepo := documentrepo.New(store)

	// Pipeline building blocks
	chnk, err := chunker.New(cfg.Ingest.MaxSegmentChars, cfg.Ingest.OverlapChars)
	if err != nil {
		logger.Fatal("Invalid chunking configuration", zap.Error(err))
	}

	generator := newGenerator(cfg.LLM, logger)

	// Use case services
	ingestSvc := ingestuc.New(
		parser.New(), chnk, docEmbedder, segRepo, docRepo, cfg.Embedding.Dimensions, logger,
	)
	retrievalSvc := retrievaluc.New(
		queryEmbedder, segRepo, generator,
		cfg.Retrieval.DefaultTopK, cfg.Retrieval.MaxTopK, logger,
	)
	docSvc := documentuc.New(docRepo, segRepo, logger)

	healthSvc := healthuc.New(store, docEmbedder, generator)

	server := chiTransport.NewServer(
		ingestSvc, retrievalSvc, docSvc, healthSvc, cfg.Ingest.MaxUploadBytes, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// batchEmbedder is what the pipelines need: single and batch embedding, plus
// a provider availability check for /health. Every decorator in the chain
// forwards HealthCheck down to the base provider client.
type batchEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) batchEmbedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Timeout:    time.Duration(cfg.RequestTimeoutSec) * time.Second,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Cached
	var inner domain.Embedder = base
	if store != nil {
		ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
		inner = embcache.New(base, store, cfg.Model, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (logging + batch chunking)
	instrumented := embeddinguc.NewInstrumentedEmbedder(inner, cfg.Provider, cfg.Model, logger)

	// Instruction prefix (outermost, so the prefixed text is what gets cached)
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}

	return instrumented
}

func newGenerator(cfg config.LLMConfig, logger *zap.Logger) *openaiTransport.Generator {
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   time.Duration(cfg.RequestTimeoutSec) * time.Second,
		Logger:    logger,
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
