package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		SQLitePath:           "runs.db",
		FSMDBPath:            "fsm",
		LogDir:               "logs",
		VerifyAttempts:       5,
		VerifyInterval:       2 * time.Second,
		HistoryRetentionDays: 90,
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty sqlite path", func(c *Config) { c.SQLitePath = "" }},
		{"empty fsm path", func(c *Config) { c.FSMDBPath = "" }},
		{"empty log dir", func(c *Config) { c.LogDir = "" }},
		{"zero verify attempts", func(c *Config) { c.VerifyAttempts = 0 }},
		{"negative verify interval", func(c *Config) { c.VerifyInterval = -time.Second }},
		{"zero retention", func(c *Config) { c.HistoryRetentionDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
	if cfg.VerifyTimeoutFatal {
		t.Error("verification timeout must be non-fatal by default")
	}
}
