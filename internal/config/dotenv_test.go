package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	unsetenv(t, "REPRO_A")
	unsetenv(t, "REPRO_B")
	unsetenv(t, "REPRO_C")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := []byte(`
# comment

REPRO_A=one
export REPRO_B=two
REPRO_C="three"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	for key, want := range map[string]string{"REPRO_A": "one", "REPRO_B": "two", "REPRO_C": "three"} {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	t.Setenv("REPRO_KEEP", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("REPRO_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("REPRO_KEEP"); got != "from-env" {
		t.Fatalf("REPRO_KEEP=%q, want %q", got, "from-env")
	}
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("loadDotEnv missing file: %v", err)
	}
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "APP_ENV", "DB_PATH", "STORE_BACKEND", "RECORDS_PATH", "PRICE_LIST_TIMEOUT", "COMPANY_NAME", "DESKTOP_EXPORT", "LOG_LEVEL"} {
		unsetenv(t, key)
	}
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("PRICE_LIST_TIMEOUT", "3s")
	t.Setenv("DESKTOP_EXPORT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "./dev.db" || cfg.RecordsPath != "./estimates.csv" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CompanyName != "Bowler" || cfg.LogLevel != "info" || !cfg.IsDev() {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.StoreBackend != BackendSQLite || cfg.PriceListTimeout != 3*time.Second || !cfg.DesktopExport {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := Config{Port: "8080", StoreBackend: "mongo", PriceListTimeout: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
