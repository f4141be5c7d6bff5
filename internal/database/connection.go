package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/repositories"
)

// ConnectionManager manages the SQLite connection used by the local store
type ConnectionManager struct {
	config *repositories.SQLiteConfig
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(config *repositories.SQLiteConfig, logger *logrus.Logger) *ConnectionManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &ConnectionManager{
		config: config,
		logger: logger,
	}
}

// Connect opens the database and, when AutoMigrate is set, applies migrations
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	if cm.db != nil {
		return fmt.Errorf("database connection already established")
	}

	dbPath, err := filepath.Abs(cm.config.Path)
	if err != nil {
		return fmt.Errorf("failed to get absolute database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", BuildDSN(dbPath, cm.config))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; transactions rely on this to serialize list updates.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if cm.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cm.config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if cm.config.AutoMigrate {
		if err := NewMigrationManager(db.DB, cm.logger).RunMigrations(); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cm.db = db
	cm.logger.WithField("db_path", dbPath).Info("Database connection established")
	return nil
}

// BuildDSN builds a go-sqlite3 DSN with the connection options
func BuildDSN(path string, config *repositories.SQLiteConfig) string {
	options := []string{"_foreign_keys=on", "_journal_mode=WAL"}
	if config.BusyTimeout > 0 {
		options = append(options, fmt.Sprintf("_busy_timeout=%d", config.BusyTimeout))
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(options, "&"))
}

// GetDB returns the database connection
func (cm *ConnectionManager) GetDB() *sqlx.DB {
	return cm.db
}

// Close closes the database connection
func (cm *ConnectionManager) Close() error {
	if cm.db == nil {
		return nil
	}

	err := cm.db.Close()
	cm.db = nil

	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	cm.logger.Info("Database connection closed")
	return nil
}

// Ping tests the database connection
func (cm *ConnectionManager) Ping(ctx context.Context) error {
	if cm.db == nil {
		return fmt.Errorf("database connection not established")
	}

	if err := cm.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// GetMigrationManager returns a migration manager for this connection
func (cm *ConnectionManager) GetMigrationManager() *MigrationManager {
	if cm.db == nil {
		return nil
	}

	return NewMigrationManager(cm.db.DB, cm.logger)
}

// HealthCheck pings the database and runs a trivial query
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := cm.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("test query returned unexpected result: %d", result)
	}

	var fkEnabled int
	if err := cm.db.GetContext(ctx, &fkEnabled, "PRAGMA foreign_keys"); err != nil {
		return fmt.Errorf("failed to check foreign key status: %w", err)
	}

	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys are not enabled")
	}

	return nil
}
