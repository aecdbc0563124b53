package backend

import (
	"fmt"

	"ledgerplan/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (want one of %v)", appConfig.LedgerBackend, GetBackendTypeStrings())
	}
	budgetSource := BudgetSource(appConfig.BudgetBackend)
	if !budgetSource.IsValid() {
		return Config{}, fmt.Errorf("invalid budget backend in config: %s", appConfig.BudgetBackend)
	}

	cfg := Config{
		Type:         backendType,
		BudgetSource: budgetSource,

		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DatabaseURL:   appConfig.DatabaseURL,
		DataDirectory: appConfig.DataDirectory,

		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleBudgetSheetName: appConfig.GoogleBudgetSheetName,
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = "data"
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.BudgetSource.IsValid() {
		return fmt.Errorf("invalid budget source: %s", c.BudgetSource)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
		// DataDirectory will default to "data" if empty
	}

	if c.BudgetSource == BudgetFromSheets && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required for sheets budget source")
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
