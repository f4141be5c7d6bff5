package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

type failedRequestService struct {
	repo      repositories.FailedRequestRepository
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewFailedRequestService creates a new failed request service instance
func NewFailedRequestService(repo repositories.FailedRequestRepository, validate *validator.Validate, logger *logrus.Logger) FailedRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &failedRequestService{repo: repo, validator: validate, logger: logger}
}

// Record stores a failed request under a new request ID
func (s *failedRequestService) Record(ctx context.Context, msg *FailedRequestMessage) (*models.FailedRequest, error) {
	if err := s.validator.Struct(msg); err != nil {
		return nil, invalid(err)
	}

	record := models.NewFailedRequest(msg.StatusCode, msg.Description, string(msg.Request))
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store failed request: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  record.RequestID,
		"status_code": record.StatusCode,
	}).Info("Failed request recorded")
	return record, nil
}
