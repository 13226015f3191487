package reliability

import (
	"os"
	"strconv"
	"time"
)

// ReliabilityConfig holds configuration for reliability testing
type ReliabilityConfig struct {
	Level         string        // "basic" or "stress"
	Duration      time.Duration // Test duration for stress tests
	MaxGoroutines int           // Maximum goroutines for concurrent tests
}

// getReliabilityConfig reads configuration from environment variables
func getReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{
		Level:         getEnv("PROFILEZ_RELIABILITY_LEVEL", ""),
		Duration:      parseDuration(getEnv("PROFILEZ_RELIABILITY_DURATION", "5s")),
		MaxGoroutines: parseInt(getEnv("PROFILEZ_RELIABILITY_MAX_GOROUTINES", "64")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	if value, err := strconv.Atoi(s); err == nil {
		return value
	}
	return 0
}

func parseDuration(s string) time.Duration {
	if duration, err := time.ParseDuration(s); err == nil {
		return duration
	}
	return 5 * time.Second
}

// shouldSkipReliabilityTests determines if reliability tests should be skipped
func shouldSkipReliabilityTests() bool {
	return os.Getenv("PROFILEZ_RELIABILITY_LEVEL") == ""
}

// isStressTestEnabled checks if stress testing is enabled
func isStressTestEnabled() bool {
	return os.Getenv("PROFILEZ_RELIABILITY_LEVEL") == "stress"
}
