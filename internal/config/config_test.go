package config

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, repositories.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "users", cfg.Store.Tables.Users)
	assert.Equal(t, "admin_id-index", cfg.Store.Tables.AdminIndex)
	assert.Equal(t, randomid.FormatCSRNG, cfg.Random.Primary.Format)
	assert.Equal(t, 3, cfg.IDs.MaxAttempts)
	assert.Equal(t, 5, cfg.IDs.CacheLowWater)
	assert.Empty(t, cfg.Reporting.QueueURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TRIPS_TABLE", "trips-dev")
	t.Setenv("RANDOM_SECONDARY_URL", "http://localhost:9000/random")
	t.Setenv("RANDOM_TIMEOUT", "250ms")
	t.Setenv("ID_CACHE_LOW_WATER", "0")
	t.Setenv("FAILED_REQUESTS_QUEUE_URL", "https://sqs.eu-west-1.amazonaws.com/1/failed")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, repositories.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "trips-dev", cfg.Store.Tables.Trips)
	assert.Equal(t, "http://localhost:9000/random", cfg.Random.Secondary.URL)
	assert.Equal(t, randomid.FormatPlain, cfg.Random.Secondary.Format)
	assert.Equal(t, int64(250), cfg.Random.Primary.Timeout.Milliseconds())
	assert.Equal(t, 0, cfg.IDs.CacheLowWater)
	assert.NotEmpty(t, cfg.Reporting.QueueURL)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("RANDOM_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"no primary url", func(c *Config) { c.Random.Primary.URL = "" }},
		{"no attempts", func(c *Config) { c.IDs.MaxAttempts = 0 }},
		{"negative low water", func(c *Config) { c.IDs.CacheLowWater = -1 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAdaptConfigForServerless(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	cfg, err := Load()
	require.NoError(t, err)

	local := AdaptConfigForServerless(cfg, &ServerlessConfig{})
	assert.Equal(t, repositories.DriverSQLite, local.Store.Driver)

	adapted := AdaptConfigForServerless(cfg, &ServerlessConfig{IsLambda: true, Region: "us-east-2"})
	assert.Equal(t, repositories.DriverDynamoDB, adapted.Store.Driver)
	assert.Equal(t, "us-east-2", adapted.Store.DynamoDB.Region)
	assert.Equal(t, "json", adapted.Log.Format)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger(LogConfig{Level: "loud"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestLoadAWSConfigWithEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	cfg := &Config{Store: repositories.Config{DynamoDB: repositories.DynamoDBConfig{
		Region:   "eu-west-1",
		Endpoint: "http://localhost:8000",
	}}}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", creds.AccessKeyID)
}
