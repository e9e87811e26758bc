package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"parcelas/internal/amqp"
	"parcelas/internal/cli"
	"parcelas/internal/config"
	"parcelas/internal/log"
	"parcelas/internal/services"
	"parcelas/internal/sheets"
	gsheet "parcelas/internal/sheets/google"
	sheetsmem "parcelas/internal/sheets/memory"
	"parcelas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting parcelas-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter, err := newExporter(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(repo, exporter, cfg.CurrencySymbol, logger)
	reminders := services.NewReminderProcessor(repo, amqpClient, cfg.ReminderWindowDays, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.Consume(gctx, exportWorker.HandleEvent)
	})
	g.Go(func() error {
		runReminders(gctx, logger, reminders, cfg.ReminderInterval)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
	if ctx.Err() != nil {
		<-done
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}

// newExporter picks the Sheets exporter when a spreadsheet is configured and
// otherwise keeps rows in memory so events are still consumed.
func newExporter(logger *log.Logger, cfg *config.Config) (sheets.InstallmentExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

func runReminders(ctx context.Context, logger *log.Logger, p *services.ReminderProcessor, every time.Duration) {
	tick := func(now time.Time) {
		if _, err := p.ProcessUpcoming(ctx, now); err != nil && ctx.Err() == nil {
			logger.Error("Reminder run failed", "error", err, log.FieldOperation, log.OpRemind)
		}
	}

	tick(time.Now())
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tick(now)
		}
	}
}
