package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finansije/internal/amqp"
	"finansije/internal/cache"
	"finansije/internal/core"
	"finansije/internal/report"
	"finansije/internal/services"
	"finansije/internal/store/memory"
)

type fakeExporter struct {
	docs []report.Document
	err  error
}

func (f *fakeExporter) ExportMonth(_ context.Context, doc report.Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func newWorker(t *testing.T) (*ExportWorker, *services.TransactionService, *fakeExporter) {
	t.Helper()
	svc := services.NewTransactionService(memory.New(), services.Options{
		Location:     time.UTC,
		SummaryCache: cache.Noop[core.MonthlySummary]{},
	})
	exp := &fakeExporter{}
	w := NewExportWorker(svc, exp, time.UTC)
	w.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return w, svc, exp
}

func TestHandleEvent_ExportsAffectedMonth(t *testing.T) {
	w, svc, exp := newWorker(t)
	ctx := context.Background()

	tr, err := svc.Create(ctx, services.CreateInput{Type: "income", Amount: "10", Currency: "eur", Description: "x", Date: "2024-03-10"})
	require.NoError(t, err)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewCreatedEvent(tr, time.UTC)))
	require.Len(t, exp.docs, 1)
	assert.Equal(t, "2024-03", exp.docs[0].Month.Key())
	assert.Equal(t, "Pozajmio: 10 EUR", exp.docs[0].Income)

	// The worker reads through the store, so a second create is visible.
	_, err = svc.Create(ctx, services.CreateInput{Type: "income", Amount: "5", Currency: "eur", Date: "2024-03-11"})
	require.NoError(t, err)
	require.NoError(t, w.HandleEvent(ctx, amqp.NewCreatedEvent(tr, time.UTC)))
	assert.Equal(t, "Pozajmio: 15 EUR", exp.docs[1].Income)
}

func TestHandleEvent_DeleteExportsCurrentMonth(t *testing.T) {
	w, _, exp := newWorker(t)
	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewDeletedEvent("gone")))
	require.Len(t, exp.docs, 1)
	assert.Equal(t, "2024-06", exp.docs[0].Month.Key())
}

func TestHandleEvent_ExportFailure(t *testing.T) {
	w, _, exp := newWorker(t)
	exp.err = errors.New("quota exceeded")
	err := w.HandleEvent(context.Background(), amqp.NewDeletedEvent("gone"))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestRunPeriodic_StopsOnCancel(t *testing.T) {
	w, _, _ := newWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}
