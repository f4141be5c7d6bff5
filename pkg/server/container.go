package server

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/config"
	"trip-planner-api/internal/handlers"
	"trip-planner-api/internal/middleware"
	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/reporting"
	"trip-planner-api/internal/repositories"
	"trip-planner-api/internal/repositories/dynamo"
	"trip-planner-api/internal/repositories/memory"
	"trip-planner-api/internal/repositories/sqlite"
	"trip-planner-api/internal/services"
	"trip-planner-api/pkg/lambda"
)

// Container holds all application dependencies
type Container struct {
	Config               *config.Config
	Logger               *logrus.Logger
	Repositories         repositories.RepositoryManager
	Reporter             reporting.Reporter
	AccountService       services.AccountService
	TripService          services.TripService
	FailedRequestService services.FailedRequestService

	awsCfg         *aws.Config
	accountHandler lambda.HandlerFunc
	tripHandler    lambda.HandlerFunc
	failedHandler  *handlers.FailedRequestHandler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = config.NewLogger(cfg.Log)
	}
	c := &Container{Config: cfg, Logger: logger}

	repos, err := c.openRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	c.Repositories = repos

	random, err := NewRandomSource(cfg.Random, logger)
	if err != nil {
		repos.Close()
		return nil, err
	}

	c.Reporter, err = c.newReporter(ctx)
	if err != nil {
		repos.Close()
		return nil, err
	}

	serviceContainer, err := services.NewServiceContainer(repos, &services.ServiceConfig{
		RandomSource:  random,
		MaxIDAttempts: cfg.IDs.MaxAttempts,
		CacheLowWater: cfg.IDs.CacheLowWater,
		Logger:        logger,
	})
	if err != nil {
		repos.Close()
		return nil, fmt.Errorf("failed to create service container: %w", err)
	}

	c.AccountService = serviceContainer.AccountService
	c.TripService = serviceContainer.TripService
	c.FailedRequestService = serviceContainer.FailedRequestService

	c.buildHandlers()

	serverless := config.GetServerlessConfig()
	logger.WithFields(logrus.Fields{
		"driver":      cfg.Store.Driver,
		"environment": cfg.Environment,
		"mode":        config.GetDeploymentMode(),
		"function":    serverless.FunctionName,
		"stage":       serverless.Stage,
		"reporting":   cfg.Reporting.QueueURL != "",
	}).Info("Container initialized")

	return c, nil
}

// NewFromEnvironment loads the deployment configuration and builds a container
func NewFromEnvironment(ctx context.Context) (*Container, error) {
	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewContainer(ctx, cfg, config.NewLogger(cfg.Log))
}

// awsConfig loads the SDK configuration once
func (c *Container) awsConfig(ctx context.Context) (aws.Config, error) {
	if c.awsCfg == nil {
		awsCfg, err := config.LoadAWSConfig(ctx, c.Config)
		if err != nil {
			return aws.Config{}, err
		}
		c.awsCfg = &awsCfg
	}
	return *c.awsCfg, nil
}

func (c *Container) openRepositories(ctx context.Context) (repositories.RepositoryManager, error) {
	store := &c.Config.Store
	if err := store.Validate(); err != nil {
		return nil, err
	}

	switch store.Driver {
	case repositories.DriverDynamoDB:
		awsCfg, err := c.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return dynamo.NewManager(dynamo.NewClient(awsCfg, store.DynamoDB.Endpoint), store, c.Logger), nil
	case repositories.DriverSQLite:
		manager, err := sqlite.Open(ctx, store, c.Logger)
		if err != nil {
			return nil, err
		}
		return manager, nil
	default:
		return memory.NewManager(), nil
	}
}

func (c *Container) newReporter(ctx context.Context) (reporting.Reporter, error) {
	if c.Config.Reporting.QueueURL == "" {
		return reporting.NoopReporter{}, nil
	}

	awsCfg, err := c.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	reporter, err := reporting.NewSQSReporter(reporting.NewSQSClient(awsCfg), c.Config.Reporting.QueueURL, c.Logger)
	if err != nil {
		return nil, err
	}
	return reporter, nil
}

// NewRandomSource builds the user ID source: the primary service, falling
// back to the secondary one when it is configured
func NewRandomSource(cfg config.RandomConfig, logger *logrus.Logger) (randomid.Source, error) {
	primary, err := randomid.NewHTTPSource(cfg.Primary, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("primary random source: %w", err)
	}
	if cfg.Secondary.URL == "" {
		return primary, nil
	}

	secondary, err := randomid.NewHTTPSource(cfg.Secondary, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("secondary random source: %w", err)
	}
	return randomid.NewFallback(primary, secondary, logger), nil
}

// chain wraps a handler with the invocation logger and the failure reporter
func (c *Container) chain(h lambda.HandlerFunc) lambda.HandlerFunc {
	return lambda.Chain(h,
		middleware.InvocationLogger(c.Logger),
		middleware.ReportFailures(c.Reporter, c.Logger),
	)
}

// buildHandlers assembles the routers and middleware chains once per container
func (c *Container) buildHandlers() {
	accounts := handlers.NewRouter()
	handlers.NewAccountHandler(c.AccountService).Register(accounts)
	c.accountHandler = c.chain(accounts.Dispatch)

	trips := handlers.NewRouter()
	handlers.NewTripHandler(c.TripService).Register(trips)
	c.tripHandler = c.chain(trips.Dispatch)

	c.failedHandler = handlers.NewFailedRequestHandler(c.FailedRequestService, c.Logger)
}

// AccountHandler returns the accounts Lambda handler
func (c *Container) AccountHandler() lambda.HandlerFunc {
	return c.accountHandler
}

// TripHandler returns the trips Lambda handler
func (c *Container) TripHandler() lambda.HandlerFunc {
	return c.tripHandler
}

// FailedRequestHandler returns the SQS consumer storing failed requests
func (c *Container) FailedRequestHandler() *handlers.FailedRequestHandler {
	return c.failedHandler
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.Repositories != nil {
		if err := c.Repositories.Close(); err != nil {
			return fmt.Errorf("failed to close repositories: %w", err)
		}
	}
	return nil
}
