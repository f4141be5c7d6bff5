package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/database"
	"trip-planner-api/internal/repositories"
)

func main() {
	var (
		dbPath  = flag.String("db", "./data/trips.db", "Database file path")
		action  = flag.String("action", "up", "Migration action: up, down, status, validate")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logger
	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}

	logger.WithFields(logrus.Fields{
		"db_path": absDBPath,
		"action":  *action,
	}).Info("Starting migration tool")

	// Migrations are applied explicitly below, never on connect
	config := &repositories.SQLiteConfig{
		Path:        absDBPath,
		BusyTimeout: 5000,
	}
	connectionManager := database.NewConnectionManager(config, logger)

	if err := connectionManager.Connect(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer connectionManager.Close()

	migrationManager := connectionManager.GetMigrationManager()

	switch *action {
	case "up":
		err = migrationManager.RunMigrations()
	case "down":
		err = migrationManager.RollbackMigration()
	case "status":
		err = showMigrationStatus(migrationManager)
	case "validate":
		err = validateSchema(migrationManager)
	default:
		logger.WithField("action", *action).Fatal("Unknown action. Use: up, down, status, validate")
	}

	if err != nil {
		connectionManager.Close()
		logger.WithError(err).WithField("action", *action).Fatal("Migration action failed")
	}

	logger.Info("Migration tool completed successfully")
}

func showMigrationStatus(m *database.MigrationManager) error {
	status, err := m.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Printf("Migration Status:\n")
	fmt.Printf("  Version: %d\n", status.Version)
	fmt.Printf("  Applied: %t\n", status.Applied)
	fmt.Printf("  Dirty: %t\n", status.Dirty)

	return nil
}

func validateSchema(m *database.MigrationManager) error {
	if err := m.ValidateSchema(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	fmt.Println("Schema validation passed successfully")
	return nil
}
