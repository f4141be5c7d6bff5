package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"trip-planner-api/internal/ids"
	"trip-planner-api/internal/membership"
	"trip-planner-api/internal/middleware"
	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
	"trip-planner-api/internal/services"
	"trip-planner-api/pkg/lambda"
)

// ErrorResponse represents a standard error response body
type ErrorResponse struct {
	Error            string                       `json:"error"`
	Message          string                       `json:"message,omitempty"`
	ValidationErrors []middleware.ValidationError `json:"validation_errors,omitempty"`
}

// StatusFor maps a service error to a status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, membership.ErrDuplicateApplication),
		errors.Is(err, membership.ErrAlreadyApproved),
		errors.Is(err, membership.ErrMemberNotFound):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case repositories.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ids.ErrAllocationExhausted):
		return http.StatusInternalServerError
	case randomid.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse builds the response for a failed operation. Server-side
// failures keep their cause in Details only.
func errorResponse(err error) *lambda.Response {
	status := StatusFor(err)
	body := ErrorResponse{Error: http.StatusText(status)}

	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		body.Error = "Validation failed"
		body.ValidationErrors = middleware.FormatValidationErrors(validationErrors)
	case status < http.StatusInternalServerError:
		body.Message = err.Error()
	}

	return &lambda.Response{StatusCode: status, Body: body, Details: err.Error()}
}

func badRequest(err error) *lambda.Response {
	return &lambda.Response{
		StatusCode: http.StatusBadRequest,
		Body:       ErrorResponse{Error: "Invalid request format", Message: err.Error()},
		Details:    err.Error(),
	}
}

// decode reads the event body into a new T
func decode[T any](event *lambda.Event) (*T, *lambda.Response) {
	req := new(T)
	if err := event.DecodeBody(req); err != nil {
		return nil, badRequest(err)
	}
	return req, nil
}
