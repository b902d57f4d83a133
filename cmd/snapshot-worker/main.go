package main

import (
	"context"
	"errors"
	"time"

	"budgetplan/internal/cli"
	"budgetplan/internal/config"
	"budgetplan/internal/log"
	"budgetplan/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(boot, (*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	logger.Info("Starting snapshot-worker", "backend", cfg.SnapshotBackend, "archive", cfg.ArchiveSQLitePath)

	primary := cli.InitBackend(context.Background(), logger, cfg)
	archive := cli.InitSQLite(logger, cfg.ArchiveSQLitePath)
	amqpClient := cli.InitAMQP(logger, cfg, true)

	mirror := worker.NewMirrorWorker(primary.Backend, archive)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		mirrored, deleted := mirror.Stats()
		logger.Info("Shutting down worker", "mirrored", mirrored, "deleted", deleted)
	})

	reconcile := func(ctx context.Context) {
		if _, err := mirror.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Archive reconcile failed", log.FieldError, err)
		}
	}

	go func() {
		reconcile(ctx)
		err := amqpClient.ConsumeWithReconnect(ctx, mirror.HandleEvent, reconcile)
		if err != nil && !errors.Is(err, context.Canceled) {
			cli.Fatal(logger, "Event consumption failed", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)

	if err := amqpClient.Close(); err != nil {
		logger.Warn("AMQP close error", log.FieldError, err)
	}
	if err := archive.Close(); err != nil {
		logger.Warn("Archive close error", log.FieldError, err)
	}
	if err := primary.Close(); err != nil {
		logger.Warn("Backend close error", log.FieldError, err)
	}
}
