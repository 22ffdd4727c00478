package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/features/stats"
	"vectorflow/apps/worker/internal/adapter/pinecone"
	"vectorflow/apps/worker/internal/adapter/qdrant"
	"vectorflow/apps/worker/internal/adapter/weaviate"
	"vectorflow/apps/worker/internal/config"
	"vectorflow/apps/worker/internal/metrics"
	"vectorflow/apps/worker/internal/middleware"
	"vectorflow/apps/worker/internal/vector"
	"vectorflow/apps/worker/internal/worker"
)

type App struct {
	Handler        http.Handler
	Orchestrator   *worker.UploadOrchestrator
	UploadConsumer *worker.UploadConsumer
	port           int
}

// VectorSettings is the immutable adapter configuration derived from cfg.
func VectorSettings(cfg *config.Config) vector.Settings {
	return vector.Settings{
		APIKey:        cfg.VectorDBKey,
		LocalEndpoint: cfg.LocalVectorDB,
		BatchSize:     cfg.UploadBatchSize,
	}
}

// NewDispatcher registers one adapter per supported backend.
func NewDispatcher(cfg *config.Config, observer vector.Observer) *vector.Dispatcher {
	settings := VectorSettings(cfg)
	qdrantTimeout := time.Duration(cfg.QdrantTimeoutSeconds) * time.Second

	return vector.NewDispatcher([]vector.Backend{
		pinecone.NewStore(settings, nil),
		qdrant.NewStore(settings, qdrantTimeout, qdrant.NewSDKDialer(settings, cfg.QdrantGRPCPort)),
		weaviate.NewStore(settings, cfg.WeaviateBatchWorkers, weaviate.NewSDKDialer(settings)),
	}, vector.WithObserver(observer))
}

func New(cfg *config.Config, db *sql.DB) (*App, error) {
	if db == nil {
		return nil, fmt.Errorf("app: nil database")
	}

	recorder := metrics.NewRecorder()
	dispatcher := NewDispatcher(cfg, recorder)

	// Feature: Batch
	batchRepo := batch.NewPostgresRepo(db)
	batchService := batch.NewService(batchRepo)
	batchHandler := batch.NewHandler(batchService)

	// Feature: Job
	jobRepo := job.NewPostgresRepo(db)
	jobService := job.NewService(jobRepo)
	jobHandler := job.NewHandler(jobService)

	// Feature: Stats
	statsHandler := stats.NewHandler(jobService)

	orchestrator := worker.NewUploadOrchestrator(batchService, jobService, dispatcher)
	consumer := worker.NewUploadConsumer(orchestrator)

	// Routes
	mux := http.NewServeMux()
	mux.Handle("GET /jobs/{id}", middleware.CorrelationID(http.HandlerFunc(jobHandler.Get)))
	mux.Handle("GET /batches/{id}", middleware.CorrelationID(http.HandlerFunc(batchHandler.Get)))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))
	mux.Handle("GET /metrics", recorder.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:        mux,
		Orchestrator:   orchestrator,
		UploadConsumer: consumer,
		port:           cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
