package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spiralwrks/spiralworks.ai/config"
	"github.com/spiralwrks/spiralworks.ai/domain/admin"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/pkg/migrations"
	"github.com/spiralwrks/spiralworks.ai/pkg/utils"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "migrate":
		err = runMigrate(logger, args[1:])

	case "confirmation-code":
		err = runConfirmationCode(args[1:])

	case "admin-token":
		err = runAdminToken(args[1:])

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed", "command", args[0], "error", err.Error())
		os.Exit(1)
	}
}

func runMigrate(logger *log.Logger, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = strings.ToLower(args[0])
	}

	db, err := config.NewDatabase(logger, config.NewDBConfigFromEnv())
	if err != nil {
		return fmt.Errorf("connect to database for migration: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance for migration: %w", err)
	}

	cfg := migrations.Config{
		Dir:    utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations"),
		Logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch direction {
	case "up":
		err = migrations.Up(ctx, sqlDB, cfg)
	case "down":
		err = migrateDown(ctx, sqlDB, cfg, args[1:])
	case "version":
		err = printVersion(ctx, sqlDB, cfg)
	default:
		return fmt.Errorf("unknown migrate direction %q (expected up, down or version)", direction)
	}
	if err != nil {
		return err
	}

	logger.Info("Database migration command completed", "direction", direction)
	return nil
}

func migrateDown(ctx context.Context, db *sql.DB, cfg migrations.Config, args []string) error {
	fs := flag.NewFlagSet("migrate down", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return migrations.Down(ctx, db, cfg, *steps)
}

func printVersion(ctx context.Context, db *sql.DB, cfg migrations.Config) error {
	version, dirty, ok, err := migrations.Version(ctx, db, cfg)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no migrations applied")
		return nil
	}
	fmt.Printf("version %d (dirty=%t)\n", version, dirty)
	return nil
}

// runConfirmationCode prints the code an administrator must send to
// POST /admin/waitlist/clear-all today.
func runConfirmationCode(args []string) error {
	fs := flag.NewFlagSet("confirmation-code", flag.ContinueOnError)
	email := fs.String("email", "", "administrator email carried by the token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	fmt.Println(admin.ConfirmationCode(time.Now(), *email))
	return nil
}

// runAdminToken mints an HS256 admin token signed with ADMIN_JWT_SECRET.
func runAdminToken(args []string) error {
	fs := flag.NewFlagSet("admin-token", flag.ContinueOnError)
	email := fs.String("email", "", "administrator email claim")
	subject := fs.String("subject", "", "subject claim; defaults to the email")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}
	if *subject == "" {
		*subject = *email
	}

	authConfig := config.NewAuthConfig()
	if authConfig.JWTSecret == "" {
		return errors.New("ADMIN_JWT_SECRET is not set")
	}

	token, err := authConfig.HMACVerifier().IssueToken(*subject, *email, *ttl)
	if err != nil {
		return fmt.Errorf("sign admin token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func printUsage() {
	fmt.Println("Usage: cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate [up|down -steps N|version]   Run SQL migrations from MIGRATIONS_DIR")
	fmt.Println("  confirmation-code -email E           Print today's clear-all confirmation code for E")
	fmt.Println("  admin-token -email E [-subject S] [-ttl 1h]")
	fmt.Println("                                       Mint an admin token signed with ADMIN_JWT_SECRET")
	fmt.Println("  help                                 Show this help")
}
