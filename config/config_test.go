package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PRESETQ_DOWNLOAD_DIR", "/var/lib/presetq/models")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DownloadDir != "/var/lib/presetq/models" {
		t.Errorf("unexpected download dir: %s", cfg.DownloadDir)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryBaseDelay != 5*time.Second {
		t.Errorf("expected default base delay 5s, got %s", cfg.RetryBaseDelay)
	}
	if cfg.RetryMaxDelay != 60*time.Second {
		t.Errorf("expected default max delay 60s, got %s", cfg.RetryMaxDelay)
	}
	if cfg.ChunkSize != 256*1024 {
		t.Errorf("expected default chunk size 256KiB, got %d", cfg.ChunkSize)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("expected unlimited rate by default, got %d", cfg.RateLimit)
	}
	if cfg.ObserverBuffer != 64 {
		t.Errorf("expected default observer buffer 64, got %d", cfg.ObserverBuffer)
	}
	if cfg.HistoryDB != "" {
		t.Errorf("expected history disabled by default, got %s", cfg.HistoryDB)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("expected default log level INFO, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRESETQ_MAX_ATTEMPTS", "5")
	t.Setenv("PRESETQ_RETRY_BASE_DELAY", "500ms")
	t.Setenv("PRESETQ_RETRY_MAX_DELAY", "10s")
	t.Setenv("PRESETQ_CHUNK_SIZE", "1048576")
	t.Setenv("PRESETQ_RATE_LIMIT", "2097152")
	t.Setenv("PRESETQ_OBSERVER_BUFFER", "128")
	t.Setenv("PRESETQ_HISTORY_DB", "/var/lib/presetq/history.db")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("expected base delay 500ms, got %s", cfg.RetryBaseDelay)
	}
	if cfg.RetryMaxDelay != 10*time.Second {
		t.Errorf("expected max delay 10s, got %s", cfg.RetryMaxDelay)
	}
	if cfg.ChunkSize != 1048576 {
		t.Errorf("expected chunk size 1MiB, got %d", cfg.ChunkSize)
	}
	if cfg.RateLimit != 2097152 {
		t.Errorf("expected rate limit 2MiB/s, got %d", cfg.RateLimit)
	}
	if cfg.ObserverBuffer != 128 {
		t.Errorf("expected observer buffer 128, got %d", cfg.ObserverBuffer)
	}
	if cfg.HistoryDB != "/var/lib/presetq/history.db" {
		t.Errorf("unexpected history path: %s", cfg.HistoryDB)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_MissingDownloadDir(t *testing.T) {
	t.Setenv("PRESETQ_DOWNLOAD_DIR", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for missing download dir")
	}
	if !strings.Contains(err.Error(), "PRESETQ_DOWNLOAD_DIR") {
		t.Errorf("expected error to name the missing variable, got: %v", err)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad integer", "PRESETQ_MAX_ATTEMPTS", "three"},
		{"bad duration", "PRESETQ_RETRY_BASE_DELAY", "5 seconds"},
		{"bad chunk size", "PRESETQ_CHUNK_SIZE", "256k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	valid := func() *EngineConfig {
		return &EngineConfig{
			DownloadDir:    "/models",
			MaxAttempts:    3,
			RetryBaseDelay: 5 * time.Second,
			RetryMaxDelay:  60 * time.Second,
			ChunkSize:      256 * 1024,
			ObserverBuffer: 64,
			LogLevel:       "INFO",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"empty download dir", func(c *EngineConfig) { c.DownloadDir = "" }},
		{"zero attempts", func(c *EngineConfig) { c.MaxAttempts = 0 }},
		{"negative base delay", func(c *EngineConfig) { c.RetryBaseDelay = -time.Second }},
		{"max delay below base", func(c *EngineConfig) { c.RetryMaxDelay = time.Second }},
		{"zero chunk size", func(c *EngineConfig) { c.ChunkSize = 0 }},
		{"negative rate limit", func(c *EngineConfig) { c.RateLimit = -1 }},
		{"zero observer buffer", func(c *EngineConfig) { c.ObserverBuffer = 0 }},
		{"bogus log level", func(c *EngineConfig) { c.LogLevel = "LOUD" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
