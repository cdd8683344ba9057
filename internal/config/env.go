package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func stringOrDefault(val, defaultValue string) string {
	if val != "" {
		return val
	}
	return defaultValue
}

func durationOrDefault(val, defaultValue time.Duration) time.Duration {
	if val <= 0 {
		return defaultValue
	}
	return val
}

func intOrDefault(val, defaultValue int) int {
	if val <= 0 {
		return defaultValue
	}
	return val
}
