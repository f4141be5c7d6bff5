package services

import "encoding/json"

// CreateUserRequest represents the body of create_user
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents the body of login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserRequest carries a single user ID
type UserRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// WarmCacheRequest represents the body of warm_id_cache
type WarmCacheRequest struct {
	Target int `json:"target" validate:"omitempty,min=1,max=100"`
}

// CreateTripRequest represents the body of create_trip
type CreateTripRequest struct {
	AdminID     int64  `json:"admin_id" validate:"required,gt=0"`
	StartDate   int64  `json:"start_date" validate:"required,gt=0"`
	EndDate     int64  `json:"end_date" validate:"required,gtfield=StartDate"`
	Location    string `json:"location" validate:"required,max=100"`
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// TripRequest carries a single trip ID
type TripRequest struct {
	TripID int64 `json:"trip_id" validate:"required,gt=0"`
}

// LocationRequest represents the body of get_trip_info_by_location
type LocationRequest struct {
	Location string `json:"location" validate:"required,max=100"`
}

// AdminRequest represents the body of get_trip_info_by_admin_id
type AdminRequest struct {
	AdminID int64 `json:"admin_id" validate:"required,gt=0"`
}

// MembershipRequest identifies a (user, trip) pair
type MembershipRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	TripID int64 `json:"trip_id" validate:"required,gt=0"`
}

// DecisionRequest represents the body of user_approval
type DecisionRequest struct {
	UserID     int64 `json:"user_id" validate:"required,gt=0"`
	TripID     int64 `json:"trip_id" validate:"required,gt=0"`
	IsApproved *bool `json:"is_approved" validate:"required"`
}

// FailedRequestMessage is the queue message describing a failed invocation
type FailedRequestMessage struct {
	StatusCode  int             `json:"status_code" validate:"required,min=100,max=599"`
	Description string          `json:"description"`
	Request     json.RawMessage `json:"request"`
}
