package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgetplan/internal/auth"
	"budgetplan/internal/cache"
	"budgetplan/internal/cli"
	apphttp "budgetplan/internal/http"
	"budgetplan/internal/log"
	"budgetplan/internal/services"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(boot, nil)
	logger := cli.SetupLogger(cfg.LogLevel)

	res := cli.InitBackend(context.Background(), logger, cfg)

	engineOpts := []services.Option{services.WithStoreTimeout(cfg.StoreTimeout)}
	amqpClient := cli.InitAMQP(logger.WithComponent(log.ComponentAMQP), cfg, false)
	if amqpClient != nil {
		engineOpts = append(engineOpts, services.WithPublisher(amqpClient))
	}

	engine := services.NewEngine(res.Store, engineOpts...)
	planner := services.NewPlanner(engine, cfg.SessionCacheSize, cfg.SessionTTL)

	caches := cache.NewManager()
	caches.Register(planner.Sessions())
	caches.StartCleanup(time.Minute)

	var tokens *auth.TokenService
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	} else {
		logger.Warn("JWT_SECRET not set, trusting the " + auth.HeaderUserID + " header")
	}

	srv := apphttp.NewServer(":"+cfg.Port, planner, auth.NewAuthenticator(tokens),
		apphttp.WithLogger(logger),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithReadiness(func(ctx context.Context) error {
			if res.Ping == nil {
				return nil
			}
			return res.Ping(ctx)
		}),
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := res.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting budgetplan server",
		"port", cfg.Port,
		"backend", cfg.SnapshotBackend,
		"events", amqpClient != nil,
		"jwt", tokens != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
