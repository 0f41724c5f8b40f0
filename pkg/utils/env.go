package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))

	if v == "" {
		return defaultValue
	}

	return v
}

// GetEnvDurationOrDefault falls back on missing, unparsable or non-positive values.
func GetEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(GetEnvTrimmed(key))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(GetEnvTrimmed(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetEnvList splits a comma separated value, dropping blanks.
func GetEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(GetEnvTrimmed(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnvPositiveIntOrDefault falls back on missing, unparsable or non-positive values.
func GetEnvPositiveIntOrDefault(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(GetEnvTrimmed(key))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
