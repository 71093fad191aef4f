package main

import (
	"context"
	"errors"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cli"
	"spendwise/internal/log"
	gsheet "spendwise/internal/sheets/google"
	"spendwise/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentWorker, nil)
	cli.MustOK(logger, "Startup failed", err)
	cli.MustOK(logger, "Configuration validation failed", cfg.ValidateSync())

	logger.Info("Starting spendwise-worker")

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	cli.MustOK(logger, "Failed to initialize Google Sheets client", err)
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"expenses_sheet", sheetsClient.ExpensesSheet(),
		"recurring_sheet", sheetsClient.RecurringSheet())

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	cli.MustOK(logger, "Failed to initialize AMQP client", err)

	syncWorker := worker.NewSyncWorker(sheetsClient)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		logger.Info("Shutting down worker...")
	})

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.Consume(ctx, syncWorker.HandleEvent)
	}()

	select {
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			_ = amqpClient.Close()
			cli.MustOK(logger, "Worker stopped", err)
		}
	case <-ctx.Done():
		<-consumeErr
	}

	cli.WaitForShutdown(ctx, done)
	if err := amqpClient.Close(); err != nil {
		logger.Warn("AMQP close failed", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}
