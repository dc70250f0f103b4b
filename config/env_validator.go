package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvValidator handles validation of required environment variables
type EnvValidator struct{}

// NewEnvValidator creates a new environment validator instance
func NewEnvValidator() *EnvValidator {
	return &EnvValidator{}
}

// ValidateRequired validates that all required environment variables are present
// Returns an error if any required variables are missing
func (e *EnvValidator) ValidateRequired() error {
	requiredVars := []string{"PRESETQ_DOWNLOAD_DIR"}

	var missingVars []string
	for _, varName := range requiredVars {
		if value := os.Getenv(varName); value == "" {
			missingVars = append(missingVars, varName)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v. Please set these variables in your .env file or environment", missingVars)
	}

	return nil
}

// GetDownloadDir returns the download root directory from environment variables
func (e *EnvValidator) GetDownloadDir() string {
	return os.Getenv("PRESETQ_DOWNLOAD_DIR")
}

// GetInt returns the named variable parsed as an integer, or fallback when
// the variable is unset. Returns an error if the value cannot be parsed.
func (e *EnvValidator) GetInt(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer, got: %s", name, raw)
	}
	return value, nil
}

// GetDuration returns the named variable parsed as a duration (e.g. "5s",
// "1m30s"), or fallback when the variable is unset
func (e *EnvValidator) GetDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration, got: %s", name, raw)
	}
	return value, nil
}
