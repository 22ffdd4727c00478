package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"vectorflow/apps/worker/internal/app"
	"vectorflow/apps/worker/internal/config"
	"vectorflow/apps/worker/internal/logger"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database + migrations
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("failed to bootstrap", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	// 3. Services
	application, err := app.New(cfg, deps.DB)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}

	// 4. Worker (Upload Consumer)
	consumer, err := app.NewUploadConsumer(cfg, application.UploadConsumer)
	if err != nil {
		slog.Error("failed to start upload consumer", "error", err)
		os.Exit(1)
	}
	defer func() {
		consumer.Stop()
		<-consumer.StopChan
		slog.Info("upload consumer stopped")
	}()

	// 5. Start Server
	if err := application.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
