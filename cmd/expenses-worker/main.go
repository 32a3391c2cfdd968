package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/client"
	"expenses/internal/config"
	applog "expenses/internal/log"
	gsheet "expenses/internal/sheets/google"
	"expenses/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, applog.ComponentWorker, os.Stdout)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	sheets, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	logger.Info("Google Sheets mirror initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	// The API is the source of truth for periodic reconciliation.
	api, err := client.New(cfg.APIURL, client.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		return err
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sheets, api, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming record events", "queue", cfg.AMQPQueue)
		return amqpClient.ConsumeEvents(gctx, syncWorker.HandleEvent)
	})
	g.Go(func() error {
		if cfg.SyncInterval > 0 {
			logger.Info("Periodic reconciliation enabled", "interval", cfg.SyncInterval.String(), "api_url", api.BaseURL())
		}
		return syncWorker.RunReconcileLoop(gctx, cfg.SyncInterval)
	})
	return g.Wait()
}
