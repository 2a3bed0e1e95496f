package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Curated  CuratedConfig  `yaml:"curated"`
	Sync     SyncConfig     `yaml:"sync"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScrapeConfig holds source scraping settings. Individual source URLs are
// overridable so tests and mirrors can point adapters elsewhere.
type ScrapeConfig struct {
	PitchforkAlbumsURL   string `yaml:"pitchfork_albums_url"`
	PitchforkReissuesURL string `yaml:"pitchfork_reissues_url"`
	AllMusicURL          string `yaml:"allmusic_url"`
	StereogumURL         string `yaml:"stereogum_url"`
	AquariumURL          string `yaml:"aquarium_url"`
	SourceDelayMS        int    `yaml:"source_delay_ms"`
}

// CuratedConfig holds the supplementary hand-curated album list settings.
type CuratedConfig struct {
	Path string `yaml:"path"`
}

// SyncConfig holds sync orchestration settings.
type SyncConfig struct {
	IntervalHours    int `yaml:"interval_hours"`
	FullLimit        int `yaml:"full_limit"`
	IncrementalLimit int `yaml:"incremental_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// SourceDelay returns the courtesy pause between source scrapes.
func (c ScrapeConfig) SourceDelay() time.Duration {
	if c.SourceDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(c.SourceDelayMS) * time.Millisecond
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "/data/spingrid.db",
		},
		Scrape: ScrapeConfig{
			PitchforkAlbumsURL:   "https://pitchfork.com/reviews/best/albums/",
			PitchforkReissuesURL: "https://pitchfork.com/reviews/best/reissues/",
			AllMusicURL:          "https://www.allmusic.com/newreleases",
			StereogumURL:         "https://www.stereogum.com/heavy-rotation/",
			AquariumURL:          "https://aquariumdrunkard.com/",
			SourceDelayMS:        1000,
		},
		Curated: CuratedConfig{
			Path: "/data/curated.yaml",
		},
		Sync: SyncConfig{
			IntervalHours:    6,
			FullLimit:        100,
			IncrementalLimit: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("SG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SG_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("SG_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SG_CURATED_PATH"); v != "" {
		c.Curated.Path = v
	}
	if v := os.Getenv("SG_SYNC_INTERVAL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.Sync.IntervalHours = hours
		}
	}
	if v := os.Getenv("SG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SG_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SG_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Sync.FullLimit < 1 {
		return fmt.Errorf("sync full_limit must be positive, got %d", c.Sync.FullLimit)
	}
	if c.Sync.IncrementalLimit < 1 {
		return fmt.Errorf("sync incremental_limit must be positive, got %d", c.Sync.IncrementalLimit)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
