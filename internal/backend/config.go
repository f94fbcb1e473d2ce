package backend

import (
	"errors"
	"fmt"

	"myfinances/internal/config"
)

// FromAppConfig converts the process configuration to a backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	backendType := BackendType(appConfig.ReportBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.ReportBackend)
	}
	return Config{
		Type:                     backendType,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type != SheetsBackend {
		return nil
	}

	var errs []error
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, errors.New("Google Spreadsheet ID is required for sheets backend"))
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		errs = append(errs, errors.New("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets backend"))
	}
	return errors.Join(errs...)
}

// BackendTypes returns all valid backend types
func BackendTypes() []BackendType {
	return []BackendType{NoneBackend, MemoryBackend, SheetsBackend}
}
