package backend

import (
	"context"
	"fmt"

	goption "google.golang.org/api/option"

	"myfinances/internal/log"
	gsheet "myfinances/internal/sheets/google"
	"myfinances/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// extra client options for the Sheets API, used to target a fake server
	sheetsOpts []goption.ClientOption
}

func NewFactory(logger *log.Logger, sheetsOpts ...goption.ClientOption) *DefaultFactory {
	if logger == nil {
		logger = log.Default(log.ComponentApp)
	}
	return &DefaultFactory{logger: logger, sheetsOpts: sheetsOpts}
}

// CreateReportWriter implements Factory.CreateReportWriter
func (f *DefaultFactory) CreateReportWriter(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case NoneBackend:
		f.logger.Info("Report export disabled", "backend", cfg.Type.String())
		return &Result{}, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory report backend")
		return &Result{Writer: memory.New()}, nil
	case SheetsBackend:
		return f.createSheetsBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, cfg Config) (*Result, error) {
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, f.logger, f.sheetsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets report backend",
		"spreadsheet_id", cfg.GoogleSpreadsheetID)
	return &Result{Writer: client}, nil
}
