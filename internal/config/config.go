package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Database paths
	SQLitePath string `mapstructure:"sqlite-path"`
	FSMDBPath  string `mapstructure:"fsm-db-path"`

	// Log directory for the rotating persistent sink
	LogDir string `mapstructure:"log-dir"`

	// Host tool overrides (mainly for testing)
	WSLPath      string `mapstructure:"wsl-path"`
	DiskPartPath string `mapstructure:"diskpart-path"`

	// VHD auto-detection
	SearchRoots []string `mapstructure:"search-roots"`

	// Logout verification policy
	VerifyAttempts     int           `mapstructure:"verify-attempts"`
	VerifyInterval     time.Duration `mapstructure:"verify-interval"`
	VerifyTimeoutFatal bool          `mapstructure:"verify-timeout-fatal"`

	// Run-history retention for the cleanup command
	HistoryRetentionDays int `mapstructure:"history-retention-days"`

	// Optional S3 archive for unattended runs
	ArchiveBucket string `mapstructure:"archive-bucket"`
	ArchiveRegion string `mapstructure:"archive-region"`
}

// appDir is the per-user application-data directory, mirroring where
// the tool has always kept its state.
func appDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "WSLCompact")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".wslcompact"
	}
	return filepath.Join(dir, "wslcompact")
}

// Load reads configuration from defaults, environment, and an optional
// config file.
func Load() (*Config, error) {
	base := appDir()

	viper.SetDefault("sqlite-path", filepath.Join(base, "runs.db"))
	viper.SetDefault("fsm-db-path", filepath.Join(base, "fsm"))
	viper.SetDefault("log-dir", filepath.Join(base, "logs"))
	viper.SetDefault("wsl-path", "")
	viper.SetDefault("diskpart-path", "")
	viper.SetDefault("search-roots", []string{})
	viper.SetDefault("verify-attempts", 5)
	viper.SetDefault("verify-interval", 2*time.Second)
	viper.SetDefault("verify-timeout-fatal", false)
	viper.SetDefault("history-retention-days", 90)
	viper.SetDefault("archive-bucket", "")
	viper.SetDefault("archive-region", "us-east-1")

	// Environment variables (WSLCOMPACT_VERIFY_ATTEMPTS and friends)
	viper.SetEnvPrefix("WSLCOMPACT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(base)

	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.LogDir == "" {
		return fmt.Errorf("log-dir cannot be empty")
	}
	if c.VerifyAttempts < 1 {
		return fmt.Errorf("verify-attempts must be at least 1")
	}
	if c.VerifyInterval < 0 {
		return fmt.Errorf("verify-interval must be non-negative")
	}
	if c.HistoryRetentionDays < 1 {
		return fmt.Errorf("history-retention-days must be at least 1")
	}
	return nil
}
