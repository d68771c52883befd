package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/study-assistant/internal/bootstrap"
	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/observability/logging"
	"github.com/kirillkom/study-assistant/internal/observability/metrics"
)

const serviceName = "study-worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, bootstrap.WorkerProcessTimeout)
		defer cancel()
		return processDocument(processCtx, app.Repo, app.ProcessUC, workerMetrics, documentID)
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func processDocument(
	ctx context.Context,
	repo ports.DocumentRepository,
	processor ports.DocumentProcessor,
	workerMetrics *metrics.WorkerMetrics,
	documentID string,
) error {
	start := time.Now()
	if doc, err := repo.GetByID(ctx, documentID); err == nil {
		workerMetrics.ObserveQueueLag(serviceName, start.Sub(doc.CreatedAt))
	}

	workerMetrics.StartDocument()
	err := processor.ProcessByID(ctx, documentID)
	duration := time.Since(start)
	workerMetrics.FinishDocument(serviceName, duration, err)
	if err != nil {
		slog.ErrorContext(ctx, "document_process_failed",
			"document_id", documentID,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return err
	}

	chunkCount := 0
	if doc, err := repo.GetByID(ctx, documentID); err == nil {
		chunkCount = doc.ChunkCount
		workerMetrics.ObserveChunkCount(serviceName, chunkCount)
	}
	slog.InfoContext(ctx, "document_processed",
		"document_id", documentID,
		"chunks", chunkCount,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}
