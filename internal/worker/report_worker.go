// Package worker exports reports when new snapshots are announced.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"myfinances/internal/amqp"
	"myfinances/internal/config"
	"myfinances/internal/core"
	"myfinances/internal/log"
	"myfinances/internal/services"
	"myfinances/internal/sheets"
	"myfinances/internal/storage"
)

// Builder rebuilds an aggregator from a stored snapshot.
type Builder interface {
	BuildFromImport(ctx context.Context, paths *config.Paths, importID string, splitDay int) (*services.Budget, error)
}

// ReportWorker turns ImportCompleted events into exported reports.
type ReportWorker struct {
	builder         Builder
	writer          sheets.ReportWriter
	paths           *config.Paths
	defaultSplitDay int
	logger          *log.Logger

	mu           sync.Mutex
	lastExported string
}

// NewReportWorker creates a worker. paths supplies the drop and add
// directives applied before export; nil applies none.
func NewReportWorker(builder Builder, writer sheets.ReportWriter, paths *config.Paths, defaultSplitDay int, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	} else {
		logger = logger.WithComponent(log.ComponentWorker)
	}
	return &ReportWorker{
		builder:         builder,
		writer:          writer,
		paths:           paths,
		defaultSplitDay: defaultSplitDay,
		logger:          logger,
	}
}

// HandleImportCompleted exports the report of the announced snapshot. The
// split day travels with the event; an invalid one falls back to the
// worker default.
func (w *ReportWorker) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	splitDay := msg.SplitDay
	if core.ValidateMonthSplitDay(splitDay) != nil {
		splitDay = w.defaultSplitDay
	}
	w.logger.InfoContext(ctx, "Processing import message",
		log.FieldImportID, msg.ImportID,
		log.FieldSplitDay, splitDay)
	return w.export(ctx, msg.ImportID, splitDay)
}

// ExportLatest exports the newest snapshot unless it was already exported.
// It covers events lost while the worker was down.
func (w *ReportWorker) ExportLatest(ctx context.Context) error {
	err := w.export(ctx, "", w.defaultSplitDay)
	if errors.Is(err, storage.ErrNoImports) {
		w.logger.InfoContext(ctx, "No stored imports to export yet")
		return nil
	}
	return err
}

func (w *ReportWorker) export(ctx context.Context, importID string, splitDay int) error {
	budget, err := w.builder.BuildFromImport(ctx, w.paths, importID, splitDay)
	if err != nil {
		return fmt.Errorf("build report for import %q: %w", importID, err)
	}
	id := budget.Import.ID

	w.mu.Lock()
	done := importID == "" && id == w.lastExported
	w.mu.Unlock()
	if done {
		w.logger.DebugContext(ctx, "Latest import already exported", log.FieldImportID, id)
		return nil
	}

	ref, err := w.writer.WriteReport(ctx, budget.Costs.Report())
	if err != nil {
		return fmt.Errorf("write report for import %s: %w", id, err)
	}

	w.mu.Lock()
	w.lastExported = id
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Report exported",
		log.FieldImportID, id,
		log.FieldSheetRef, ref)
	return nil
}

// LastExported returns the id of the last exported snapshot.
func (w *ReportWorker) LastExported() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastExported
}
