package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
	_ "time/tzdata"

	"finansije/internal/backend"
	"finansije/internal/cache"
	"finansije/internal/cli"
	"finansije/internal/core"
	applog "finansije/internal/log"
	"finansije/internal/services"
	gsheet "finansije/internal/sheets/google"
	"finansije/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting finansije-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required by the worker")
		os.Exit(1)
	}
	if backend.Type(cfg.DataBackend) == backend.Memory {
		logger.Warn("Worker is using the memory backend; it will not see transactions written by the server")
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

	// Writes happen in another process, so summaries are never cached here.
	svc := services.NewTransactionService(res.Store, services.Options{
		Location:     loc,
		SummaryCache: cache.Noop[core.MonthlySummary]{},
	})

	sheetsClient, err := gsheet.New(ctx, gsheet.Credentials{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	exporter := worker.NewExportWorker(svc, sheetsClient, loc)

	logger.Info("Performing startup export of the current month")
	if err := exporter.ExportCurrentMonth(ctx); err != nil {
		logger.Error("Startup export failed", applog.FieldError, err, applog.FieldOperation, applog.OpExport)
	}

	var wg sync.WaitGroup
	if res.Publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := res.Publisher.Consume(ctx, exporter.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", applog.FieldError, err)
				cancel()
			}
		}()
	} else {
		logger.Info("No AMQP connection, relying on periodic export only")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		exporter.RunPeriodic(ctx, cfg.ExportInterval)
	}()

	<-ctx.Done()
	logger.Info("Shutting down worker", applog.FieldOperation, applog.OpShutdown)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
	defer shutdownCancel()
	select {
	case <-done:
		logger.Info("Worker shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
