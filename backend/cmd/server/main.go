package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agent-neo/backend/internal/adapter"
	"agent-neo/backend/internal/agent"
	"agent-neo/backend/internal/api"
	"agent-neo/backend/internal/embedding"
	"agent-neo/backend/internal/graph"
	"agent-neo/backend/internal/persist"
	"agent-neo/backend/internal/status"
	"agent-neo/backend/pkg/config"
	"agent-neo/backend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	// Initialize logger
	if err := logger.Init(env, os.Getenv("LOG_LEVEL")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Agent Neo backend...")

	ctx := context.Background()

	// Load configuration
	provider, err := config.ProviderFromEnv(ctx)
	if err != nil {
		log.Fatal("Failed to select secret backend", zap.Error(err))
	}
	cfg, err := config.Load(ctx, provider)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to Neo4j
	conn, err := graph.NewConnection(ctx, graph.Credentials{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}

	if cfg.EnsureSchema {
		if _, err := graph.EnsureSchema(ctx, conn, graph.SchemaOptions{Dimensions: cfg.EmbeddingDimension}); err != nil {
			log.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	// Initialize dependencies
	embedder, err := embedding.New(ctx, embedding.ConfigFrom(cfg))
	if err != nil {
		log.Fatal("Failed to create embedder", zap.Error(err))
	}
	invoker, err := adapter.NewRouterFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create language model router", zap.Error(err))
	}

	tracker, closeTracker, err := buildTracker(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create persistence status store", zap.Error(err))
	}

	writer := graph.NewWriter(conn)
	reader := graph.NewReader(conn)

	queue := persist.NewQueue(writer, tracker, queueOptions(cfg))
	queue.Start(context.Background())

	orch := agent.NewOrchestrator(agent.Dependencies{
		Embedder:  embedder,
		Retriever: reader,
		Invoker:   invoker,
		Ratings:   writer,
		Queue:     queue,
		Tracker:   tracker,
	}, agent.Options{
		RetrievalMode: cfg.RetrievalMode,
		TopicCount:    cfg.TopicCount,
		DocsPerTopic:  cfg.DocsPerTopic,
		Public:        cfg.PublicMessages,
	})

	router := api.NewRouter(orch, log, api.Options{
		CORSOrigins: cfg.CORSOrigins,
		Release:     cfg.IsProduction(),
		Health:      conn,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("embedding_model", embedder.Model()),
		zap.String("retrieval_mode", cfg.RetrievalMode),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain queued turns before the connection goes away
	if err := queue.Shutdown(shutdownCtx); err != nil {
		log.Error("Persistence queue did not drain", zap.Error(err))
	}
	if err := closeTracker(); err != nil {
		log.Warn("Failed to close persistence status store", zap.Error(err))
	}
	if err := conn.Close(context.Background()); err != nil {
		log.Warn("Failed to close Neo4j connection", zap.Error(err))
	}

	log.Info("Server exited")
}

// buildTracker keeps persistence statuses in Redis when an address is configured, in memory otherwise.
func buildTracker(ctx context.Context, cfg *config.Config) (status.Tracker, func() error, error) {
	if cfg.RedisAddr == "" {
		return status.NewMemoryTracker(status.DefaultTTL), func() error { return nil }, nil
	}
	rt, err := status.NewRedisTracker(ctx, cfg.RedisAddr, cfg.RedisPassword, status.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}
	return rt, rt.Close, nil
}

func queueOptions(cfg *config.Config) persist.Options {
	opts := persist.DefaultOptions()
	opts.Workers = cfg.PersistWorkers
	opts.QueueSize = cfg.PersistQueueSize
	opts.MaxAttempts = cfg.PersistMaxAttempts
	return opts
}
