package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Log         LogConfig
	Store       repositories.Config
	Random      RandomConfig
	IDs         IDConfig
	Reporting   ReportingConfig
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// RandomConfig holds the random number services used for user IDs.
// An empty Secondary.URL disables the fallback.
type RandomConfig struct {
	Primary   randomid.HTTPConfig
	Secondary randomid.HTTPConfig
}

// IDConfig holds ID allocation settings
type IDConfig struct {
	MaxAttempts   int
	CacheLowWater int
}

// ReportingConfig holds the failed-request queue. An empty QueueURL disables reporting.
type ReportingConfig struct {
	QueueURL string
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("STORE_DRIVER", repositories.DriverSQLite)
	v.SetDefault("USERS_TABLE", "users")
	v.SetDefault("TRIPS_TABLE", "trips")
	v.SetDefault("FAILED_REQUESTS_DYNAMODB_TABLE", "failed_requests")
	v.SetDefault("USERS_EMAIL_INDEX", "email-index")
	v.SetDefault("TRIPS_LOCATION_INDEX", "location-index")
	v.SetDefault("TRIPS_ADMIN_INDEX", "admin_id-index")
	v.SetDefault("AWS_REGION", "eu-west-1")
	v.SetDefault("DYNAMODB_MAX_CAS_ATTEMPTS", 5)
	v.SetDefault("SQLITE_PATH", "./data/trips.db")
	v.SetDefault("SQLITE_AUTO_MIGRATE", true)
	v.SetDefault("SQLITE_BUSY_TIMEOUT", 5000)
	v.SetDefault("RANDOM_PRIMARY_URL", "https://csrng.net/csrng/csrng.php")
	v.SetDefault("RANDOM_PRIMARY_FORMAT", string(randomid.FormatCSRNG))
	v.SetDefault("RANDOM_SECONDARY_FORMAT", string(randomid.FormatPlain))
	v.SetDefault("RANDOM_TIMEOUT", "5s")
	v.SetDefault("RANDOM_RATE_LIMIT", 1.0)
	v.SetDefault("RANDOM_BURST", 3)
	v.SetDefault("ID_MAX_ATTEMPTS", 3)
	v.SetDefault("ID_CACHE_LOW_WATER", 5)

	timeout, err := time.ParseDuration(v.GetString("RANDOM_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid RANDOM_TIMEOUT: %w", err)
	}

	random := func(prefix string) randomid.HTTPConfig {
		return randomid.HTTPConfig{
			URL:       v.GetString(prefix + "_URL"),
			Format:    randomid.Format(v.GetString(prefix + "_FORMAT")),
			Timeout:   timeout,
			RateLimit: v.GetFloat64("RANDOM_RATE_LIMIT"),
			Burst:     v.GetInt("RANDOM_BURST"),
		}
	}

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Store: repositories.Config{
			Driver: v.GetString("STORE_DRIVER"),
			Tables: repositories.TableConfig{
				Users:          v.GetString("USERS_TABLE"),
				Trips:          v.GetString("TRIPS_TABLE"),
				FailedRequests: v.GetString("FAILED_REQUESTS_DYNAMODB_TABLE"),
				EmailIndex:     v.GetString("USERS_EMAIL_INDEX"),
				LocationIndex:  v.GetString("TRIPS_LOCATION_INDEX"),
				AdminIndex:     v.GetString("TRIPS_ADMIN_INDEX"),
			},
			DynamoDB: repositories.DynamoDBConfig{
				Region:         v.GetString("AWS_REGION"),
				Endpoint:       v.GetString("DYNAMODB_ENDPOINT"),
				MaxCASAttempts: v.GetInt("DYNAMODB_MAX_CAS_ATTEMPTS"),
			},
			SQLite: repositories.SQLiteConfig{
				Path:            v.GetString("SQLITE_PATH"),
				AutoMigrate:     v.GetBool("SQLITE_AUTO_MIGRATE"),
				BusyTimeout:     v.GetInt("SQLITE_BUSY_TIMEOUT"),
				ConnMaxLifetime: time.Hour,
			},
		},
		Random: RandomConfig{
			Primary:   random("RANDOM_PRIMARY"),
			Secondary: random("RANDOM_SECONDARY"),
		},
		IDs: IDConfig{
			MaxAttempts:   v.GetInt("ID_MAX_ATTEMPTS"),
			CacheLowWater: v.GetInt("ID_CACHE_LOW_WATER"),
		},
		Reporting: ReportingConfig{
			QueueURL: v.GetString("FAILED_REQUESTS_QUEUE_URL"),
		},
	}

	return config, nil
}

// Validate checks the settings that would otherwise fail at first use
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Random.Primary.URL == "" {
		return errors.New("random: primary URL is required")
	}
	if c.IDs.MaxAttempts < 1 {
		return errors.New("ids: max attempts must be at least 1")
	}
	if c.IDs.CacheLowWater < 0 {
		return errors.New("ids: cache low-water mark cannot be negative")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log: unsupported format %q", c.Log.Format)
	}
	return nil
}

// IsProduction returns true in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsBool gets an environment variable as boolean with a fallback value
func GetEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
