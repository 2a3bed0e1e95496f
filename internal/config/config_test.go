package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Sync.FullLimit != 100 {
		t.Errorf("expected default full limit 100, got %d", cfg.Sync.FullLimit)
	}
	if cfg.Sync.IncrementalLimit != 50 {
		t.Errorf("expected default incremental limit 50, got %d", cfg.Sync.IncrementalLimit)
	}
	if cfg.Scrape.SourceDelay() != time.Second {
		t.Errorf("expected default source delay 1s, got %v", cfg.Scrape.SourceDelay())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
  base_path: /grid/
database:
  path: /tmp/test.db
sync:
  interval_hours: 12
  full_limit: 40
  incremental_limit: 20
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/grid" {
		t.Errorf("expected trimmed base path /grid, got %q", cfg.Server.BasePath)
	}
	if cfg.Sync.FullLimit != 40 {
		t.Errorf("expected full limit 40, got %d", cfg.Sync.FullLimit)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SG_PORT", "7070")
	t.Setenv("SG_DB_PATH", "/tmp/env.db")
	t.Setenv("SG_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("expected env db path, got %s", cfg.Database.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env log level warn, got %s", cfg.Logging.Level)
	}
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("SG_PORT", "99999")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/data/spingrid.db" {
		t.Errorf("expected default db path, got %s", cfg.Database.Path)
	}
}
