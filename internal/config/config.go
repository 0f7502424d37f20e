package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Record store backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port   string `envconfig:"PORT" default:"8080"`
	AppEnv string `envconfig:"APP_ENV" default:"dev"`

	DBPath       string `envconfig:"DB_PATH" default:"./dev.db"`
	StoreBackend string `envconfig:"STORE_BACKEND" default:"csv"`
	RecordsPath  string `envconfig:"RECORDS_PATH" default:"./estimates.csv"`

	PriceListURL     string        `envconfig:"PRICE_LIST_URL"`
	PriceListTimeout time.Duration `envconfig:"PRICE_LIST_TIMEOUT" default:"15s"`

	SheetsCredentialsPath string `envconfig:"SHEETS_CREDENTIALS_PATH"`
	SheetsSpreadsheetID   string `envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetsRange           string `envconfig:"SHEETS_RANGE" default:"A:Z"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	SessionSecret string `envconfig:"SESSION_SECRET"`

	CompanyName   string `envconfig:"COMPANY_NAME" default:"Bowler"`
	DesktopExport bool   `envconfig:"DESKTOP_EXPORT" default:"false"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the optional .env file and the process environment into a Config.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	if cfg.AdminEmail == "" {
		log.Print("warning: ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		log.Print("warning: ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		log.Print("warning: SESSION_SECRET is not set")
	}

	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendCSV, BackendSQLite, c.StoreBackend)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must be provided")
	}
	if c.PriceListTimeout <= 0 {
		return fmt.Errorf("PRICE_LIST_TIMEOUT must be positive, got %s", c.PriceListTimeout)
	}
	return nil
}

// IsDev reports whether the server runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "dev"
}

// SheetsEnabled reports whether the Sheets API source is configured.
func (c Config) SheetsEnabled() bool {
	return c.SheetsCredentialsPath != "" && c.SheetsSpreadsheetID != ""
}
