// Package worker keeps the spreadsheet copy of monthly reports in step with
// the transaction store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finansije/internal/amqp"
	"finansije/internal/core"
	"finansije/internal/report"
	"finansije/internal/sheets"
)

// ReportSource renders the report for a month.
type ReportSource interface {
	MonthlyReport(ctx context.Context, m core.Month) (report.Document, error)
}

// ExportWorker re-exports the affected month whenever a transaction event
// arrives.
type ExportWorker struct {
	reports  ReportSource
	exporter sheets.ReportExporter
	loc      *time.Location
	now      func() time.Time
}

func NewExportWorker(reports ReportSource, exporter sheets.ReportExporter, loc *time.Location) *ExportWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportWorker{reports: reports, exporter: exporter, loc: loc, now: time.Now}
}

// HandleEvent exports the event's month. Events without a month, such as
// deletes, export the current month.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev amqp.TransactionEvent) error {
	m, ok := ev.AffectedMonth()
	if !ok {
		m = core.MonthOf(w.now(), w.loc)
	}
	slog.InfoContext(ctx, "Processing transaction event",
		"kind", ev.Kind,
		"id", ev.ID,
		"month", m.Key())

	if err := w.ExportMonth(ctx, m); err != nil {
		return fmt.Errorf("handle %s %s: %w", ev.Kind, ev.ID, err)
	}
	return nil
}

// ExportMonth renders and exports one month.
func (w *ExportWorker) ExportMonth(ctx context.Context, m core.Month) error {
	doc, err := w.reports.MonthlyReport(ctx, m)
	if err != nil {
		return fmt.Errorf("render report %s: %w", m.Key(), err)
	}
	if err := w.exporter.ExportMonth(ctx, doc); err != nil {
		return fmt.Errorf("export report %s: %w", m.Key(), err)
	}
	return nil
}

// ExportCurrentMonth is the periodic backstop for events lost in transit.
func (w *ExportWorker) ExportCurrentMonth(ctx context.Context) error {
	return w.ExportMonth(ctx, core.MonthOf(w.now(), w.loc))
}

// RunPeriodic calls ExportCurrentMonth every interval until ctx is done.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ExportCurrentMonth(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}
