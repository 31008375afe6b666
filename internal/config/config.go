// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Storage settings.
	DataDir string // Directory holding the database and backup snapshots.

	// Backup settings.
	BackupRetention int // Number of rotating snapshots kept.

	// Remote sync settings.
	GithubAPI   string // Gist API base URL; tests point it elsewhere.
	HTTPTimeout time.Duration

	// Operational settings.
	LogLevel  string
	LogFormat string // "text" or "json".
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		DataDir:         envStr("KIROKU_DATA_DIR", defaultDataDir()),
		BackupRetention: envInt("KIROKU_BACKUP_RETENTION", 5),
		GithubAPI:       envStr("KIROKU_GITHUB_API", "https://api.github.com"),
		HTTPTimeout:     envDuration("KIROKU_HTTP_TIMEOUT", 30*time.Second),
		LogLevel:        envStr("KIROKU_LOG_LEVEL", "info"),
		LogFormat:       envStr("KIROKU_LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: KIROKU_DATA_DIR is required")
	}
	if c.BackupRetention < 1 {
		return fmt.Errorf("config: KIROKU_BACKUP_RETENTION must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: KIROKU_HTTP_TIMEOUT must be positive")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: KIROKU_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// DatabasePath is the SQLite file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "kiroku.db")
}

// BackupDir is the snapshot directory inside the data directory.
func (c Config) BackupDir() string {
	return filepath.Join(c.DataDir, "backups")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kiroku"
	}
	return filepath.Join(home, ".kiroku")
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
