package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fincycle/internal/cli"
	"fincycle/internal/config"
	applog "fincycle/internal/log"
	"fincycle/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	be := cli.InitBackend(context.Background(), logger, cfg)
	if be.AMQP == nil {
		logger.ErrorContext(context.Background(), "Sync worker needs a reachable broker", "exchange", cfg.AMQPExchange)
		_ = be.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := be.Cleanup(); err != nil {
			logger.ErrorContext(ctx, "Backend cleanup error", "error", err)
		}
	})

	w := worker.NewSyncWorker(be.Synchronizer, cfg.SyncTimeout).
		WithEvents(applog.NewStructuredLogger(logger.WithComponent(applog.ComponentSync)))

	logger.InfoContext(ctx, "Starting sync worker",
		applog.FieldOperation, applog.OpStartup,
		"backend", cfg.DataBackend,
		"queue", cfg.AMQPQueue,
		"deletion_policy", cfg.DeletionPolicy,
		"concurrency", cfg.SyncConcurrency)

	if err := w.Run(ctx, be.AMQP); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Sync worker stopped")
}
