package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"finansije/internal/backend"
	"finansije/internal/cache"
	"finansije/internal/cli"
	"finansije/internal/core"
	apphttp "finansije/internal/http"
	applog "finansije/internal/log"
	"finansije/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.Build(ctx, backendCfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	summaries := cache.NewLRUCache[core.MonthlySummary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	janitor := cache.NewJanitor()
	janitor.Register(summaries)
	janitor.Start(time.Minute)
	defer janitor.Stop()

	opts := services.Options{Location: loc, SummaryCache: summaries}
	if res.Publisher != nil {
		opts.Publisher = res.Publisher
	}
	svc := services.NewTransactionService(res.Store, opts)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting finansije server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend,
			"timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			cancel()
		}
	}

	shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
