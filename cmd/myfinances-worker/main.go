// Command myfinances-worker exports a report whenever a new snapshot of
// labeled transactions is announced on the broker.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"myfinances/internal/backend"
	"myfinances/internal/cli"
	"myfinances/internal/config"
	"myfinances/internal/log"
	"myfinances/internal/services"
	"myfinances/internal/worker"
)

func main() {
	var (
		verbose  = flag.Bool("verbose", false, "enable debug logging")
		interval = flag.Duration("interval", 15*time.Minute, "how often to export the latest snapshot if an event was missed")
		keep     = flag.Int("keep", 12, "number of stored imports to keep, 0 keeps all")
	)
	flag.Parse()

	cfg, logger := cli.Bootstrap(*verbose)
	logger.Info("Starting myfinances-worker", log.FieldOperation, log.OpStartup)

	paths, err := config.LoadPaths(cfg.BudgetPath(), cfg.BudgetConfigDir)
	if err != nil {
		logger.Error("Failed to load budget configuration", log.FieldError, err)
		os.Exit(1)
	}
	splitDay, err := cli.ResolveSplitDay(0, paths, cfg)
	if err != nil {
		logger.Error("Invalid month split day", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid report backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateReportWriter(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize report backend", log.FieldError, err)
		os.Exit(1)
	}
	if res.Writer == nil {
		logger.Error("The worker needs REPORT_BACKEND set to memory or sheets")
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient == nil {
		logger.Error("The worker needs a reachable AMQP_URL")
		os.Exit(1)
	}
	defer amqpClient.Close()

	svc := services.NewBudgetService(logger, services.WithStore(repo))
	w := worker.NewReportWorker(svc, res.Writer, paths, splitDay, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup export check...")
	if err := w.ExportLatest(ctx); err != nil {
		// keep running, the next event or tick retries
		logger.Error("Failed startup export", log.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeImportCompleted(ctx, w.HandleImportCompleted); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.ExportLatest(ctx); err != nil {
					logger.Error("Periodic export failed", log.FieldError, err)
				}
				if *keep > 0 {
					if n, err := repo.PruneImports(ctx, *keep); err != nil {
						logger.Error("Pruning imports failed", log.FieldError, err)
					} else if n > 0 {
						logger.Info("Pruned old imports", "deleted", n)
					}
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
