package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"myfinances/internal/core"
	"myfinances/internal/log"
)

// Report backends
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendSheets = "sheets"
)

// Config is the process configuration read from the environment.
type Config struct {
	// HTTP Server
	Port string

	// Budget configuration directory, main file and default split day
	BudgetConfigDir string
	BudgetFile      string
	MonthSplitDay   string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Backend selection for report export
	ReportBackend string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8050"),

		BudgetConfigDir: getEnv("BUDGET_CONFIG_DIR", "config"),
		BudgetFile:      getEnv("BUDGET_FILE", "budget.yaml"),
		MonthSplitDay:   getEnv("MONTH_SPLIT_DAY", "1"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/myfinances.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "myfinances"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_imports"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Report"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ReportBackend: getEnv("REPORT_BACKEND", BackendNone),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// SplitDay returns the configured default month split day.
func (c *Config) SplitDay() (int, error) {
	return core.ParseMonthSplitDay(c.MonthSplitDay)
}

// BudgetPath returns the main budget file. A relative BudgetFile lives in
// BudgetConfigDir.
func (c *Config) BudgetPath() string {
	if filepath.IsAbs(c.BudgetFile) {
		return c.BudgetFile
	}
	return filepath.Join(c.BudgetConfigDir, c.BudgetFile)
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := c.SplitDay(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid MONTH_SPLIT_DAY: %v", err))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}

	validBackends := []string{BackendNone, BackendMemory, BackendSheets}
	if !slices.Contains(validBackends, c.ReportBackend) {
		errors = append(errors, fmt.Sprintf("invalid report backend '%s': must be one of %v", c.ReportBackend, validBackends))
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReportBackend == BackendSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
