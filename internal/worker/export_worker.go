// Package worker mirrors committed payment batches into the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"time"

	"cartera/internal/amqp"
	"cartera/internal/log"
	"cartera/internal/services"
)

// Exporter is the part of the tracker the worker drives.
type Exporter interface {
	ExportTransactions(ctx context.Context, ids []string) (services.ExportResult, error)
	ExportMonth(ctx context.Context, year int, month time.Month) (services.ExportResult, error)
}

// ExportWorker appends the transactions of each payment batch to the
// spreadsheet. Exports skip rows already present, so redelivered messages
// are harmless.
type ExportWorker struct {
	exporter Exporter
	logger   *log.Logger
	now      func() time.Time
}

func NewExportWorker(exporter Exporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandlePaymentBatch exports the transactions of one batch. An error makes
// the consumer requeue the message.
func (w *ExportWorker) HandlePaymentBatch(ctx context.Context, msg *amqp.PaymentBatchMessage) error {
	w.logger.InfoContext(ctx, "Processing payment batch message",
		"batch_id", msg.BatchID,
		log.FieldPaid, len(msg.PaidIDs),
		log.FieldFailed, len(msg.Failures))

	if len(msg.TransactionIDs) == 0 {
		return nil
	}

	result, err := w.exporter.ExportTransactions(ctx, msg.TransactionIDs)
	if err != nil {
		return fmt.Errorf("export batch %s: %w", msg.BatchID, err)
	}

	w.logger.InfoContext(ctx, "Payment batch exported",
		"batch_id", msg.BatchID,
		"exported", result.Exported,
		"skipped", result.Skipped,
		log.FieldSheetsRef, result.Ref)
	return nil
}

// StartupSync exports the current and previous month. It recovers rows
// whose batch message was lost or arrived while the worker was down.
func (w *ExportWorker) StartupSync(ctx context.Context) error {
	now := w.now()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	exported := 0
	for _, m := range []time.Time{thisMonth.AddDate(0, -1, 0), thisMonth} {
		result, err := w.exporter.ExportMonth(ctx, m.Year(), m.Month())
		if err != nil {
			return fmt.Errorf("startup sync %d-%02d: %w", m.Year(), m.Month(), err)
		}
		if result.Exported > 0 {
			w.logger.InfoContext(ctx, "Recovered unexported transactions",
				log.FieldYear, m.Year(),
				log.FieldMonth, int(m.Month()),
				"exported", result.Exported)
		}
		exported += result.Exported
	}

	w.logger.InfoContext(ctx, "Startup sync completed", "exported", exported)
	return nil
}
