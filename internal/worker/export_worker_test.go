package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartera/internal/amqp"
	"cartera/internal/services"
)

type fakeExporter struct {
	batches [][]string
	months  []time.Time
	err     error
}

func (f *fakeExporter) ExportTransactions(_ context.Context, ids []string) (services.ExportResult, error) {
	f.batches = append(f.batches, ids)
	return services.ExportResult{Exported: len(ids), Ref: "mem"}, f.err
}

func (f *fakeExporter) ExportMonth(_ context.Context, year int, month time.Month) (services.ExportResult, error) {
	f.months = append(f.months, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	return services.ExportResult{Exported: 1}, f.err
}

func TestExportWorker_HandlePaymentBatch(t *testing.T) {
	ctx := context.Background()
	exp := &fakeExporter{}
	w := NewExportWorker(exp, nil)

	msg := amqp.NewPaymentBatchMessage("b1", time.Now())
	require.NoError(t, w.HandlePaymentBatch(ctx, msg))
	assert.Empty(t, exp.batches, "empty batch should not export")

	msg.TransactionIDs = []string{"t1", "t2"}
	require.NoError(t, w.HandlePaymentBatch(ctx, msg))
	assert.Equal(t, [][]string{{"t1", "t2"}}, exp.batches)

	exp.err = errors.New("sheets down")
	err := w.HandlePaymentBatch(ctx, msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b1")
}

func TestExportWorker_StartupSync(t *testing.T) {
	exp := &fakeExporter{}
	w := NewExportWorker(exp, nil)
	w.now = func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, w.StartupSync(context.Background()))
	assert.Equal(t, []time.Time{
		time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}, exp.months)

	exp.err = errors.New("boom")
	assert.Error(t, w.StartupSync(context.Background()))
}
