package repositories

import (
	"errors"
	"fmt"
	"time"
)

// Supported store drivers
const (
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config represents repository configuration
type Config struct {
	// Driver selects the store implementation
	Driver string `json:"driver" yaml:"driver"`

	Tables   TableConfig    `json:"tables" yaml:"tables"`
	DynamoDB DynamoDBConfig `json:"dynamodb" yaml:"dynamodb"`
	SQLite   SQLiteConfig   `json:"sqlite" yaml:"sqlite"`
}

// TableConfig names the tables and secondary indexes
type TableConfig struct {
	Users          string `json:"users" yaml:"users"`
	Trips          string `json:"trips" yaml:"trips"`
	FailedRequests string `json:"failed_requests" yaml:"failed_requests"`
	EmailIndex     string `json:"email_index" yaml:"email_index"`
	LocationIndex  string `json:"location_index" yaml:"location_index"`
	AdminIndex     string `json:"admin_index" yaml:"admin_index"`
}

// DynamoDBConfig represents DynamoDB-specific configuration
type DynamoDBConfig struct {
	Region string `json:"region" yaml:"region"`

	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// MaxCASAttempts bounds the compare-and-swap loops used for list removal and cache pops
	MaxCASAttempts int `json:"max_cas_attempts" yaml:"max_cas_attempts"`
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path            string        `json:"path" yaml:"path"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate"`
	BusyTimeout     int           `json:"busy_timeout" yaml:"busy_timeout"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// DefaultConfig returns a default repository configuration
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverSQLite,
		Tables: TableConfig{
			Users:          "users",
			Trips:          "trips",
			FailedRequests: "failed_requests",
			EmailIndex:     "email-index",
			LocationIndex:  "location-index",
			AdminIndex:     "admin_id-index",
		},
		DynamoDB: DynamoDBConfig{
			Region:         "eu-west-1",
			MaxCASAttempts: 5,
		},
		SQLite: SQLiteConfig{
			Path:            "./data/trips.db",
			AutoMigrate:     true,
			BusyTimeout:     5000,
			ConnMaxLifetime: time.Hour,
		},
	}
}

// Validate validates the repository configuration
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverDynamoDB:
		if c.DynamoDB.Region == "" {
			return errors.New("dynamodb region is required")
		}
		if c.DynamoDB.MaxCASAttempts <= 0 {
			return errors.New("dynamodb max CAS attempts must be greater than 0")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return errors.New("database path is required for SQLite")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Driver)
	}

	if c.Tables.Users == "" || c.Tables.Trips == "" {
		return errors.New("users and trips table names are required")
	}

	return nil
}

// IsDynamoDB returns true if the driver is DynamoDB
func (c *Config) IsDynamoDB() bool {
	return c.Driver == DriverDynamoDB
}

// IsSQLite returns true if the driver is SQLite
func (c *Config) IsSQLite() bool {
	return c.Driver == DriverSQLite
}
