// Package backend selects where reports are exported.
package backend

import (
	"context"

	"myfinances/internal/sheets"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result carries the created writer. Writer is nil for the none backend.
type Result struct {
	Writer  sheets.ReportWriter
	Cleanup CleanupFunc
}

// Factory creates report writers from configuration.
type Factory interface {
	CreateReportWriter(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	NoneBackend   BackendType = "none"
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case NoneBackend, MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
