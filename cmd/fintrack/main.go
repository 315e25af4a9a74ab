package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	backendCfg := backend.FromAppConfig(cfg)
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	b := result.Backend

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions:       b.Transactions,
		Analytics:          b.Analytics,
		Store:              b.Store,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if b.AMQP != nil {
		w := worker.NewInvalidationWorker(b.AMQP, b.Analytics, b.InstanceID, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(workerCtx); err != nil {
				logger.Error("Invalidation worker stopped", log.FieldError, err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		stopWorker()
		wg.Wait()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"cache_enabled", cfg.CacheEnabled(),
		"amqp_enabled", b.AMQP != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		stopWorker()
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
