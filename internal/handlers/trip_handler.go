package handlers

import (
	"context"
	"net/http"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/services"
	"trip-planner-api/pkg/lambda"
)

// TripHandler handles trip and membership actions
type TripHandler struct {
	tripService services.TripService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(tripService services.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// Register adds the trip actions to r
func (h *TripHandler) Register(r *Router) {
	r.Handle(http.MethodPost, "create_trip", h.CreateTrip)
	r.Handle(http.MethodGet, "get_trip_info_by_id", h.GetTrip)
	r.Handle(http.MethodGet, "get_trip_info_by_location", h.ListByLocation)
	r.Handle(http.MethodGet, "get_trip_info_by_admin_id", h.ListByAdmin)
	r.Handle(http.MethodGet, "get_all_trips", h.ListAll)
	r.Handle(http.MethodGet, "get_all_trips_for_user_id", h.ListForUser)
	r.Handle(http.MethodPost, "user_wants_to_go_on_trip", h.Apply)
	r.Handle(http.MethodPost, "user_approval", h.Decide)
	r.Handle(http.MethodPost, "remove_user_application", h.Withdraw)
	r.Handle(http.MethodDelete, "delete_trip", h.DeleteTrip)
}

type itemsBody[T any] struct {
	Items []T `json:"items"`
}

func items[T any](list []T, err error) *lambda.Response {
	if err != nil {
		return errorResponse(err)
	}
	return lambda.NewResponse(http.StatusOK, itemsBody[T]{Items: list})
}

// CreateTrip handles create_trip
func (h *TripHandler) CreateTrip(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.CreateTripRequest](event)
	if resp != nil {
		return resp
	}

	trip, err := h.tripService.CreateTrip(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	return lambda.NewResponse(http.StatusCreated, map[string]int64{"trip_id": trip.TripID})
}

// GetTrip handles get_trip_info_by_id
func (h *TripHandler) GetTrip(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.TripRequest](event)
	if resp != nil {
		return resp
	}

	trip, err := h.tripService.GetTrip(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	return lambda.NewResponse(http.StatusOK, trip)
}

// ListByLocation handles get_trip_info_by_location
func (h *TripHandler) ListByLocation(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.LocationRequest](event)
	if resp != nil {
		return resp
	}
	return items[*models.Trip](h.tripService.ListByLocation(ctx, req))
}

// ListByAdmin handles get_trip_info_by_admin_id
func (h *TripHandler) ListByAdmin(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.AdminRequest](event)
	if resp != nil {
		return resp
	}
	return items[*models.Trip](h.tripService.ListByAdmin(ctx, req))
}

// ListAll handles get_all_trips
func (h *TripHandler) ListAll(ctx context.Context, event *lambda.Event) *lambda.Response {
	return items[*models.Trip](h.tripService.ListAll(ctx))
}

// ListForUser handles get_all_trips_for_user_id
func (h *TripHandler) ListForUser(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.UserRequest](event)
	if resp != nil {
		return resp
	}
	return items[*models.TripMembership](h.tripService.ListForUser(ctx, req))
}

// Apply handles user_wants_to_go_on_trip
func (h *TripHandler) Apply(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.MembershipRequest](event)
	if resp != nil {
		return resp
	}

	if err := h.tripService.Apply(ctx, req); err != nil {
		return errorResponse(err)
	}
	return lambda.StatusText(http.StatusOK)
}

// Decide handles user_approval
func (h *TripHandler) Decide(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.DecisionRequest](event)
	if resp != nil {
		return resp
	}

	if err := h.tripService.Decide(ctx, req); err != nil {
		return errorResponse(err)
	}
	return lambda.StatusText(http.StatusOK)
}

// Withdraw handles remove_user_application. Removals that fail are listed
// in Details but the response stays 200.
func (h *TripHandler) Withdraw(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.MembershipRequest](event)
	if resp != nil {
		return resp
	}

	report, err := h.tripService.Withdraw(ctx, req)
	if err != nil {
		return errorResponse(err)
	}

	resp = lambda.NewResponse(http.StatusOK, map[string]int{"removed": report.Removed()})
	if err := report.Err(); err != nil {
		resp.Details = err.Error()
	}
	return resp
}

// DeleteTrip handles delete_trip
func (h *TripHandler) DeleteTrip(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.TripRequest](event)
	if resp != nil {
		return resp
	}

	report, err := h.tripService.DeleteTrip(ctx, req)
	if err != nil {
		return errorResponse(err)
	}

	resp = lambda.NewResponse(http.StatusOK, map[string]int64{"trip_id": req.TripID, "removed": int64(report.Removed())})
	if err := report.Err(); err != nil {
		resp.Details = err.Error()
	}
	return resp
}
