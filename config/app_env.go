package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
)

const AppEnvKey = "APP_ENV"

// devLikeEnvs are the APP_ENV values under which the server may create its
// own schema with --auto-migrate.
var devLikeEnvs = map[string]bool{
	"":            true,
	"dev":         true,
	"development": true,
	"local":       true,
	"test":        true,
	"testing":     true,
}

// InitializeEnvFile loads .env from the working directory unless
// SKIP_DOTENV=true. Variables already set in the process win.
func InitializeEnvFile(logger *log.Logger) {
	if os.Getenv("SKIP_DOTENV") == "true" {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded", "error", err.Error())
		return
	}

	logger.Info("Environment variables loaded from .env file")
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

func IsProduction() bool {
	switch GetAppEnv() {
	case "prod", "production":
		return true
	}
	return false
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	if devLikeEnvs[env] {
		return nil
	}
	return fmt.Errorf("--auto-migrate is not allowed when %s=%q; use `cli migrate` instead", AppEnvKey, env)
}
