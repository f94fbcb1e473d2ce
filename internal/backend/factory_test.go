package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfinances/internal/config"
	"myfinances/internal/log"
	"myfinances/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{ReportBackend: "sqlite"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		ReportBackend:            config.BackendSheets,
		GoogleSpreadsheetID:      "sid",
		GoogleSheetName:          "Report",
		GoogleServiceAccountJSON: "{}",
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsBackend, cfg.Type)
	assert.Equal(t, "sid", cfg.GoogleSpreadsheetID)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"none", Config{Type: NoneBackend}, ""},
		{"memory", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "ftp"}, "invalid backend type"},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountFile: "sa.json"}, "Spreadsheet ID"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "sid"}, "GoogleServiceAccountFile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateReportWriter(t *testing.T) {
	f := NewFactory(log.Discard())
	ctx := context.Background()

	res, err := f.CreateReportWriter(ctx, Config{Type: NoneBackend})
	require.NoError(t, err)
	assert.Nil(t, res.Writer)

	res, err = f.CreateReportWriter(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Writer)

	_, err = f.CreateReportWriter(ctx, Config{
		Type:                     SheetsBackend,
		GoogleSpreadsheetID:      "sid",
		GoogleServiceAccountFile: "/non/existent/sa.json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")

	for _, bt := range BackendTypes() {
		assert.True(t, bt.IsValid(), bt.String())
	}
}
