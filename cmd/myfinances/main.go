// Command myfinances loads and labels bank exports, applies the drop and add
// directives and prints the monthly summary. With --serve it keeps running
// and serves the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"myfinances/internal/backend"
	"myfinances/internal/cli"
	"myfinances/internal/config"
	apphttp "myfinances/internal/http"
	"myfinances/internal/log"
	"myfinances/internal/services"
	"myfinances/internal/sheets"
)

func main() {
	var (
		configDir  = flag.String("config", "", "budget configuration directory (default BUDGET_CONFIG_DIR)")
		dataRoot   = flag.String("data", ".", "directory the input file patterns are resolved in")
		splitDay   = flag.Int("split-day", 0, "day of month a financial month starts on, 1-27")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
		useStore   = flag.Bool("store", false, "persist the labeled transactions to SQLite and publish an import event")
		fromImport = flag.String("from-import", "", "rebuild from a stored import id instead of the bank exports (\"latest\" for the newest)")
		export     = flag.Bool("export", false, "export the report to REPORT_BACKEND")
		serve      = flag.Bool("serve", false, "serve the dashboard on PORT after printing the summary")
	)
	flag.Parse()

	cfg, logger := cli.Bootstrap(*verbose)
	if *configDir != "" {
		cfg.BudgetConfigDir = *configDir
	}

	if err := run(cfg, logger, runOptions{
		dataRoot:   *dataRoot,
		splitDay:   *splitDay,
		useStore:   *useStore,
		fromImport: *fromImport,
		export:     *export,
		serve:      *serve,
	}); err != nil {
		logger.Error("myfinances failed", log.FieldError, err)
		os.Exit(1)
	}
}

type runOptions struct {
	dataRoot   string
	splitDay   int
	useStore   bool
	fromImport string
	export     bool
	serve      bool
}

func run(cfg *config.Config, logger *log.Logger, opts runOptions) error {
	ctx := context.Background()

	paths, err := config.LoadPaths(cfg.BudgetPath(), cfg.BudgetConfigDir)
	if err != nil {
		return fmt.Errorf("load budget configuration: %w", err)
	}
	day, err := cli.ResolveSplitDay(opts.splitDay, paths, cfg)
	if err != nil {
		return err
	}

	svcOpts := []services.Option{services.WithDataRoot(opts.dataRoot)}
	if opts.useStore || opts.fromImport != "" {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		svcOpts = append(svcOpts, services.WithStore(repo))

		if client := cli.InitAMQP(logger, cfg); client != nil {
			defer client.Close()
			svcOpts = append(svcOpts, services.WithPublisher(client))
		}
	}
	svc := services.NewBudgetService(logger, svcOpts...)

	var budget *services.Budget
	switch opts.fromImport {
	case "":
		budget, err = svc.Build(ctx, paths, day)
	case "latest":
		budget, err = svc.BuildFromImport(ctx, paths, "", day)
	default:
		budget, err = svc.BuildFromImport(ctx, paths, opts.fromImport, day)
	}
	if err != nil {
		return err
	}
	if budget.Import != nil {
		logger.Info("Using import",
			log.FieldImportID, budget.Import.ID,
			log.FieldRows, budget.Import.RowCount)
	}

	if err := cli.PrintReport(os.Stdout, budget.Costs.Report()); err != nil {
		return fmt.Errorf("print report: %w", err)
	}

	writer, cleanup, err := reportWriter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.export {
		if writer == nil {
			return errors.New("--export needs REPORT_BACKEND set to memory or sheets")
		}
		ref, err := writer.WriteReport(ctx, budget.Costs.Report())
		if err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		fmt.Fprintf(os.Stdout, "\nExported to %s\n", ref)
	}

	if !opts.serve {
		return nil
	}
	return serveDashboard(cfg, logger, budget, writer)
}

func reportWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.ReportWriter, func(), error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreateReportWriter(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Report backend cleanup failed", log.FieldError, err)
		}
	}
	return res.Writer, cleanup, nil
}

func serveDashboard(cfg *config.Config, logger *log.Logger, budget *services.Budget, writer sheets.ReportWriter) error {
	opts := []apphttp.Option{apphttp.WithLogger(logger)}
	if writer != nil {
		opts = append(opts, apphttp.WithReportWriter(writer))
	}
	srv := apphttp.NewServer(":"+cfg.Port, budget.Costs, opts...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting dashboard",
		"port", cfg.Port,
		"budget", filepath.Base(cfg.BudgetPath()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve dashboard: %w", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
