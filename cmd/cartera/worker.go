package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cartera/internal/amqp"
	"cartera/internal/cli"
	"cartera/internal/worker"
)

func workerCmd() *cobra.Command {
	var skipStartup bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Export paid batches to the spreadsheet as they are published",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.backend.Publisher == nil {
				return fmt.Errorf("no message broker configured (set AMQP_URL)")
			}
			if a.backend.Exporter == nil {
				return fmt.Errorf("no spreadsheet configured (set GOOGLE_SPREADSHEET_ID)")
			}

			ctx, done := cli.GracefulShutdown(a.logger.Logger, 10*time.Second, nil)
			w := worker.NewExportWorker(a.backend.Tracker, a.logger)

			if !skipStartup {
				if err := w.StartupSync(ctx); err != nil {
					a.logger.WarnContext(ctx, "Startup sync failed", "error", err)
				}
			}

			err := a.backend.Publisher.ConsumePaymentBatches(ctx, func(msg *amqp.PaymentBatchMessage) error {
				return w.HandlePaymentBatch(ctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				cli.WaitForShutdown(ctx, done)
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&skipStartup, "skip-startup-sync", false, "Do not export the last two months before consuming")
	return cmd
}
