package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/ids"
	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// accountService implements the AccountService interface
type accountService struct {
	users       repositories.UserRepository
	allocator   ids.Allocator
	cache       *ids.Cache
	cacheTarget int
	validator   *validator.Validate
	logger      *logrus.Logger
}

// NewAccountService creates a new account service instance
func NewAccountService(users repositories.UserRepository, allocator ids.Allocator, cache *ids.Cache, cacheTarget int, validate *validator.Validate, logger *logrus.Logger) AccountService {
	if cacheTarget <= 0 {
		cacheTarget = ids.DefaultLowWater
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &accountService{
		users:       users,
		allocator:   allocator,
		cache:       cache,
		cacheTarget: cacheTarget,
		validator:   validate,
		logger:      logger,
	}
}

// CreateUser registers a new account under a freshly allocated user ID
func (s *accountService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}

	email := models.NormalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	} else if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	id, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate user id: %w", err)
	}

	user, err := models.NewUser(id, email, req.Password)
	if err != nil {
		return nil, err
	}

	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to store user %d: %w", id, err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("user_id", id).Info("User created")
	return user, nil
}

// Login checks the credentials and returns the user's ID
func (s *accountService) Login(ctx context.Context, req *LoginRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, invalid(err)
	}

	user, err := s.users.GetByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.CheckPassword(req.Password) {
		return 0, ErrInvalidCredentials
	}
	return user.UserID, nil
}

// GetEmail returns the email address of a user
func (s *accountService) GetEmail(ctx context.Context, req *UserRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", invalid(err)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.Email, nil
}

// WarmIDCache fills the user ID cache. Individual failures are logged; the
// call fails only if nothing could be cached at all.
func (s *accountService) WarmIDCache(ctx context.Context, req *WarmCacheRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, invalid(err)
	}

	target := req.Target
	if target == 0 {
		target = s.cacheTarget
	}

	length, err := s.cache.Fill(ctx, target)
	if err != nil {
		s.logger.WithError(err).WithField("cached", length).Warn("Some id cache entries could not be added")
		if length == 0 {
			return 0, fmt.Errorf("failed to warm id cache: %w", err)
		}
	}
	return length, nil
}
