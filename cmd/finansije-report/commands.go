package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"finansije/internal/backend"
	"finansije/internal/cache"
	"finansije/internal/cli"
	"finansije/internal/config"
	"finansije/internal/core"
	applog "finansije/internal/log"
	"finansije/internal/report"
	"finansije/internal/services"
	"finansije/internal/store"
	"finansije/internal/store/memory"
)

type summaryCmd struct {
	Month  int    `required:"" help:"Month number (1-12)."`
	Year   int    `required:"" help:"Four digit year."`
	Format string `default:"text" enum:"text,html,pdf" help:"Output format."`
	Out    string `default:"-" help:"Output file; '-' writes to stdout. A directory gets summary-M-YYYY.<ext>."`
}

func (c *summaryCmd) Run(g *globals) error {
	m, err := core.NewMonth(c.Month, c.Year)
	if err != nil {
		return err
	}

	env, err := open(g)
	if err != nil {
		return err
	}
	defer env.close()

	svc := services.NewTransactionService(env.res.Store, services.Options{
		Location:     env.loc,
		SummaryCache: cache.Noop[core.MonthlySummary]{},
	})
	doc, err := svc.MonthlyReport(env.ctx, m)
	if err != nil {
		return err
	}
	return c.write(doc)
}

func (c *summaryCmd) write(doc report.Document) error {
	var (
		w    io.Writer = os.Stdout
		path           = c.Out
	)
	if path != "-" {
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			path = filepath.Join(path, doc.Filename(c.Format))
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	switch c.Format {
	case "pdf":
		return doc.WritePDF(w)
	case "html":
		return doc.WriteHTML(w)
	default:
		_, err := io.WriteString(w, doc.Text())
		return err
	}
}

type importCmd struct {
	File string `arg:"" required:"" type:"existingfile" help:"JSON array of {type, amount, currency, description, date}."`
}

func (c *importCmd) Run(g *globals) error {
	seed, err := memory.NewFromFile(c.File)
	if err != nil {
		return err
	}
	ts := seed.All()

	env, err := open(g)
	if err != nil {
		return err
	}
	defer env.close()

	importer, ok := env.res.Store.(store.Importer)
	if !ok {
		return errors.New("configured store does not support bulk import")
	}
	if err := importer.Import(env.ctx, ts); err != nil {
		return err
	}
	env.logger.Info("Import finished", "file", c.File, "count", len(ts), applog.FieldBackend, env.cfg.DataBackend)
	return nil
}

type environment struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *applog.Logger
	loc    *time.Location
	res    *backend.Result
}

func open(g *globals) (*environment, error) {
	cli.LoadEnvFile()
	// stdout may carry the report itself.
	logger := cli.SetupLoggerTo(applog.ComponentReport, os.Stderr)

	cfg := config.Load()
	if g.Backend != "" {
		cfg.DataBackend = g.Backend
	}
	// Reports never publish events.
	cfg.AMQPURL = ""
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	ctx, cancel := cli.SignalContext(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	res, err := backend.Build(ctx, bcfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	return &environment{ctx: ctx, cancel: cancel, cfg: cfg, logger: logger, loc: loc, res: res}, nil
}

func (e *environment) close() {
	if err := e.res.Cleanup(); err != nil {
		e.logger.Error("Backend cleanup failed", applog.FieldError, err)
	}
	e.cancel()
}
