package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/ids"
	"trip-planner-api/internal/membership"
	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// tripService implements the TripService interface
type tripService struct {
	trips     repositories.TripRepository
	users     repositories.UserRepository
	allocator ids.Allocator
	protocol  *membership.Protocol
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewTripService creates a new trip service instance
func NewTripService(trips repositories.TripRepository, users repositories.UserRepository, allocator ids.Allocator, protocol *membership.Protocol, validate *validator.Validate, logger *logrus.Logger) TripService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &tripService{
		trips:     trips,
		users:     users,
		allocator: allocator,
		protocol:  protocol,
		validator: validate,
		logger:    logger,
	}
}

// CreateTrip allocates an ID and stores a trip with empty membership lists
func (s *tripService) CreateTrip(ctx context.Context, req *CreateTripRequest) (*models.Trip, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}

	id, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate trip id: %w", err)
	}

	trip := models.NewTrip(id, req.AdminID, req.StartDate, req.EndDate, req.Location, req.Title, req.Description)
	if err := trip.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"trip_id": id, "admin_id": trip.AdminID}).Info("Trip created")
	return trip, nil
}

// GetTrip retrieves a trip by ID
func (s *tripService) GetTrip(ctx context.Context, req *TripRequest) (*models.Trip, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}

	trip, err := s.trips.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListByLocation returns the trips to a location, matched after title-casing
func (s *tripService) ListByLocation(ctx context.Context, req *LocationRequest) ([]*models.Trip, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}

	location := models.TitleCase(req.Location)
	trips, err := s.trips.ListByLocation(ctx, location)
	return nonEmpty(trips, err, "location "+location)
}

// ListByAdmin returns the trips created by a user
func (s *tripService) ListByAdmin(ctx context.Context, req *AdminRequest) ([]*models.Trip, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}

	trips, err := s.trips.ListByAdmin(ctx, req.AdminID)
	return nonEmpty(trips, err, "admin "+strconv.FormatInt(req.AdminID, 10))
}

// ListAll returns every trip
func (s *tripService) ListAll(ctx context.Context) ([]*models.Trip, error) {
	trips, err := s.trips.List(ctx)
	return nonEmpty(trips, err, "any filter")
}

func nonEmpty(trips []*models.Trip, err error, filter string) ([]*models.Trip, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	if len(trips) == 0 {
		return nil, repositories.EmptyResultError(string(repositories.EntityTrip), filter)
	}
	return trips, nil
}

// ListForUser returns the trips a user is awaiting approval for or approved on
func (s *tripService) ListForUser(ctx context.Context, req *UserRequest) ([]*models.TripMembership, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var items []*models.TripMembership
	collect := func(tripIDs []int64, status models.MembershipState) error {
		for _, tripID := range tripIDs {
			trip, err := s.trips.GetByID(ctx, tripID)
			if repositories.IsNotFound(err) {
				s.logger.WithFields(logrus.Fields{"user_id": user.UserID, "trip_id": tripID}).Warn("User lists a trip that no longer exists")
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get trip: %w", err)
			}
			items = append(items, &models.TripMembership{Trip: trip, Status: status})
		}
		return nil
	}

	if err := collect(user.AwaitingApproval, models.MembershipAwaiting); err != nil {
		return nil, err
	}
	if err := collect(user.Approved, models.MembershipApproved); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, repositories.EmptyResultError(string(repositories.EntityTrip), "user "+strconv.FormatInt(user.UserID, 10))
	}
	return items, nil
}

// DeleteTrip removes the trip from its members' lists, then deletes it
func (s *tripService) DeleteTrip(ctx context.Context, req *TripRequest) (*membership.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}

	trip, err := s.trips.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	report := s.protocol.Dissolve(ctx, trip)

	if err := s.trips.Delete(ctx, trip.TripID); err != nil {
		return report, fmt.Errorf("failed to delete trip: %w", err)
	}

	s.logger.WithField("trip_id", trip.TripID).Info("Trip deleted")
	return report, nil
}

// Apply records a user's application to a trip
func (s *tripService) Apply(ctx context.Context, req *MembershipRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return invalid(err)
	}
	if err := s.ensureExists(ctx, req.UserID, req.TripID); err != nil {
		return err
	}
	return s.protocol.Apply(ctx, req.UserID, req.TripID)
}

// Decide approves or rejects a pending application
func (s *tripService) Decide(ctx context.Context, req *DecisionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return invalid(err)
	}
	if err := s.ensureExists(ctx, req.UserID, req.TripID); err != nil {
		return err
	}
	return s.protocol.Decide(ctx, req.TripID, req.UserID, *req.IsApproved)
}

// Withdraw removes the user from the trip whatever their state. It does not
// fail once the request is valid.
func (s *tripService) Withdraw(ctx context.Context, req *MembershipRequest) (*membership.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err)
	}
	return s.protocol.Withdraw(ctx, req.UserID, req.TripID), nil
}

func (s *tripService) ensureExists(ctx context.Context, userID, tripID int64) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return repositories.NotFoundError(string(repositories.EntityUser), strconv.FormatInt(userID, 10))
	}

	exists, err = s.trips.Exists(ctx, tripID)
	if err != nil {
		return fmt.Errorf("failed to check trip: %w", err)
	}
	if !exists {
		return repositories.NotFoundError(string(repositories.EntityTrip), strconv.FormatInt(tripID, 10))
	}
	return nil
}
