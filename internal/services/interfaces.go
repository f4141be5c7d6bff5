package services

import (
	"context"

	"trip-planner-api/internal/membership"
	"trip-planner-api/internal/models"
)

// AccountService defines account operations
type AccountService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error)
	Login(ctx context.Context, req *LoginRequest) (int64, error)
	GetEmail(ctx context.Context, req *UserRequest) (string, error)

	// WarmIDCache tops the user ID cache up to target entries and returns its length
	WarmIDCache(ctx context.Context, req *WarmCacheRequest) (int, error)
}

// TripService defines trip operations
type TripService interface {
	CreateTrip(ctx context.Context, req *CreateTripRequest) (*models.Trip, error)
	GetTrip(ctx context.Context, req *TripRequest) (*models.Trip, error)
	ListByLocation(ctx context.Context, req *LocationRequest) ([]*models.Trip, error)
	ListByAdmin(ctx context.Context, req *AdminRequest) ([]*models.Trip, error)
	ListAll(ctx context.Context) ([]*models.Trip, error)
	ListForUser(ctx context.Context, req *UserRequest) ([]*models.TripMembership, error)
	DeleteTrip(ctx context.Context, req *TripRequest) (*membership.Report, error)

	// Membership operations
	Apply(ctx context.Context, req *MembershipRequest) error
	Decide(ctx context.Context, req *DecisionRequest) error
	Withdraw(ctx context.Context, req *MembershipRequest) (*membership.Report, error)
}

// FailedRequestService records requests that ended in a server-side failure
type FailedRequestService interface {
	Record(ctx context.Context, msg *FailedRequestMessage) (*models.FailedRequest, error)
}
