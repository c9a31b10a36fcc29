// server is the docsync binary: it wires MetadataStore, VectorStore,
// SourceStore, the sync state machine, ImportService, HybridSearch, AutoGC,
// and JobMonitor together behind the §6 HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"docsync/internal/api"
	"docsync/internal/autogc"
	"docsync/internal/config"
	"docsync/internal/embeddings"
	"docsync/internal/hybridsearch"
	"docsync/internal/importsvc"
	"docsync/internal/jobmonitor"
	"docsync/internal/logging"
	"docsync/internal/metadatastore"
	"docsync/internal/retry"
	"docsync/internal/sourcestore"
	"docsync/internal/syncfsm"
	"docsync/internal/txcoordinator"
	"docsync/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.NewLogger(logging.ParseLogLevel(cfg.Logging.Level)).WithComponent("server")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	vectorClient, err := vectorstore.New(cfg.Qdrant)
	if err != nil {
		log.Fatalf("Failed to dial Qdrant: %v", err)
	}
	var vectors vectorstore.VectorStore = vectorClient
	vectors = vectorstore.NewRetryableStore(vectors, retryConfigFromQdrant(cfg.Qdrant))
	vectors = vectorstore.NewCircuitBreakerStore(vectors, nil)
	if err := vectors.EnsureCollection(ctx, cfg.Qdrant.Collection, cfg.Qdrant.Dimension); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}

	var embedder embeddings.Provider = embeddings.New(cfg.Embeddings)
	embedder = embeddings.NewRetryableProvider(embedder, retry.DefaultConfig())
	embedder = embeddings.NewCircuitBreakerProvider(embedder, nil)

	meta := metadatastore.New(db)

	source, err := sourcestore.New(cfg.Upload.StorageDir)
	if err != nil {
		log.Fatalf("Failed to open source store at %s: %v", cfg.Upload.StorageDir, err)
	}

	coord := txcoordinator.New(meta, vectors, nil)

	machine := syncfsm.NewMachine(syncfsm.Deps{
		Meta:     meta,
		Embedder: embedder,
		Coord:    coord,
		Source:   source,
		Logger:   logger,
	})
	if err := machine.Initialize(ctx); err != nil {
		log.Fatalf("Failed to resume non-terminal sync jobs: %v", err)
	}
	machine.Start(ctx)
	defer machine.Stop()

	importer := importsvc.New(meta, coord, source, machine, cfg.Upload, logger)
	search := hybridsearch.New(meta, vectors, embedder)

	gc := autogc.New(meta, vectors, source, logger)
	gc.Start(ctx, cfg.GC.IntervalHours)
	defer gc.Stop()

	monitor := jobmonitor.New(meta, machine)

	router := api.NewRouter(cfg, meta, importer, search, monitor, pingerFunc(db.PingContext), vectors)

	httpServer := &http.Server{
		Addr:              serverAddr(cfg),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("docsync server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err.Error())
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during HTTP server shutdown", "error", err.Error())
	}
}

// pingerFunc adapts a PingContext-shaped function to handlers.Pinger.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func retryConfigFromQdrant(cfg config.QdrantConfig) *retry.Config {
	rc := retry.DefaultConfig()
	if cfg.RetryAttempts > 0 {
		rc.MaxAttempts = cfg.RetryAttempts
	}
	return rc
}

func serverAddr(cfg *config.Config) string {
	return ":" + strconv.Itoa(cfg.Server.Port)
}
