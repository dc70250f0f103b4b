package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// EngineConfig holds all configuration values for the preset download engine
type EngineConfig struct {
	DownloadDir    string        // Root directory preset files are placed under
	MaxAttempts    int           // Transfer attempts per file before failing
	RetryBaseDelay time.Duration // Delay before the first retry
	RetryMaxDelay  time.Duration // Cap on the exponentially growing delay
	ChunkSize      int           // Copy buffer size in bytes
	RateLimit      int64         // Download speed cap in bytes/sec, 0 = unlimited
	ObserverBuffer int           // Per-observer event buffer size
	HistoryDB      string        // Path to the sqlite history log, "" = disabled
	LogLevel       string        // Logging level (DEBUG, INFO, WARN, ERROR, FATAL)
}

// LoadConfig loads and validates the engine configuration from environment
// variables. Returns an EngineConfig struct or an error if validation fails.
func LoadConfig() (*EngineConfig, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// Create and use environment validator
	validator := NewEnvValidator()

	// Validate required environment variables
	if err := validator.ValidateRequired(); err != nil {
		return nil, fmt.Errorf("environment validation failed: %w", err)
	}

	downloadDir := validator.GetDownloadDir()
	if downloadDir == "" {
		return nil, fmt.Errorf("PRESETQ_DOWNLOAD_DIR is required but not set")
	}

	maxAttempts, err := validator.GetInt("PRESETQ_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	baseDelay, err := validator.GetDuration("PRESETQ_RETRY_BASE_DELAY", 5*time.Second)
	if err != nil {
		return nil, err
	}

	maxDelay, err := validator.GetDuration("PRESETQ_RETRY_MAX_DELAY", 60*time.Second)
	if err != nil {
		return nil, err
	}

	chunkSize, err := validator.GetInt("PRESETQ_CHUNK_SIZE", 256*1024)
	if err != nil {
		return nil, err
	}

	rateLimit, err := validator.GetInt("PRESETQ_RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}

	observerBuffer, err := validator.GetInt("PRESETQ_OBSERVER_BUFFER", 64)
	if err != nil {
		return nil, err
	}

	// Get log level with default
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO" // Default log level
	}

	config := &EngineConfig{
		DownloadDir:    downloadDir,
		MaxAttempts:    maxAttempts,
		RetryBaseDelay: baseDelay,
		RetryMaxDelay:  maxDelay,
		ChunkSize:      chunkSize,
		RateLimit:      int64(rateLimit),
		ObserverBuffer: observerBuffer,
		HistoryDB:      os.Getenv("PRESETQ_HISTORY_DB"),
		LogLevel:       logLevel,
	}

	return config, nil
}

// Validate performs additional validation on the loaded configuration
func (c *EngineConfig) Validate() error {
	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}

	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be a positive integer, got: %d", c.MaxAttempts)
	}

	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("retry base delay must be positive, got: %s", c.RetryBaseDelay)
	}

	if c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry max delay (%s) cannot be shorter than base delay (%s)",
			c.RetryMaxDelay, c.RetryBaseDelay)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be a positive integer, got: %d", c.ChunkSize)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got: %d", c.RateLimit)
	}

	if c.ObserverBuffer <= 0 {
		return fmt.Errorf("observer buffer must be a positive integer, got: %d", c.ObserverBuffer)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
		"FATAL": true,
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s. Valid levels are: DEBUG, INFO, WARN, ERROR, FATAL", c.LogLevel)
	}

	return nil
}
