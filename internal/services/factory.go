package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/ids"
	"trip-planner-api/internal/membership"
	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	AccountService       AccountService
	TripService          TripService
	FailedRequestService FailedRequestService
}

// ServiceConfig holds configuration for services
type ServiceConfig struct {
	// RandomSource supplies user ID candidates
	RandomSource randomid.Source

	// TripRandomSource supplies the random part of trip IDs. Defaults to a local generator.
	TripRandomSource randomid.Source

	MaxIDAttempts int
	CacheLowWater int
	Logger        *logrus.Logger
}

// NewServiceContainer creates a new service container with all services
func NewServiceContainer(repos repositories.RepositoryManager, config *ServiceConfig) (*ServiceContainer, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository manager cannot be nil")
	}
	if config == nil || config.RandomSource == nil {
		return nil, fmt.Errorf("a random source is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}
	validate := NewValidator()

	cache := ids.NewCache(repos.IDCache(), repos.Users(), config.RandomSource, logger)
	userIDs := ids.NewCachedAllocator(repos.Users(), config.RandomSource, cache, config.CacheLowWater, config.MaxIDAttempts, logger)
	tripIDs := ids.NewTimestampAllocator(repos.Trips(), config.TripRandomSource, config.MaxIDAttempts, logger)
	protocol := membership.NewProtocol(repos.Memberships(), logger)

	return &ServiceContainer{
		AccountService:       NewAccountService(repos.Users(), userIDs, cache, config.CacheLowWater, validate, logger),
		TripService:          NewTripService(repos.Trips(), repos.Users(), tripIDs, protocol, validate, logger),
		FailedRequestService: NewFailedRequestService(repos.FailedRequests(), validate, logger),
	}, nil
}

// NewValidator returns a validator reporting fields by their JSON names
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}
