package handlers

import (
	"context"
	"net/http"

	"trip-planner-api/internal/services"
	"trip-planner-api/pkg/lambda"
)

// AccountHandler handles account actions
type AccountHandler struct {
	accountService services.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// Register adds the account actions to r
func (h *AccountHandler) Register(r *Router) {
	r.Handle(http.MethodPost, "create_user", h.CreateUser)
	r.Handle(http.MethodPost, "login", h.Login)
	r.Handle(http.MethodGet, "get_email", h.GetEmail)
	r.Handle(http.MethodPost, "warm_id_cache", h.WarmIDCache)
}

// CreateUser handles create_user
func (h *AccountHandler) CreateUser(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.CreateUserRequest](event)
	if resp != nil {
		return resp
	}

	user, err := h.accountService.CreateUser(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	return lambda.NewResponse(http.StatusCreated, map[string]int64{"user_id": user.UserID})
}

// Login handles login
func (h *AccountHandler) Login(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.LoginRequest](event)
	if resp != nil {
		return resp
	}

	userID, err := h.accountService.Login(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	return lambda.NewResponse(http.StatusOK, map[string]int64{"user_id": userID})
}

// GetEmail handles get_email
func (h *AccountHandler) GetEmail(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.UserRequest](event)
	if resp != nil {
		return resp
	}

	email, err := h.accountService.GetEmail(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	return lambda.NewResponse(http.StatusOK, map[string]string{"email": email})
}

// WarmIDCache handles warm_id_cache
func (h *AccountHandler) WarmIDCache(ctx context.Context, event *lambda.Event) *lambda.Response {
	req, resp := decode[services.WarmCacheRequest](event)
	if resp != nil {
		return resp
	}

	cached, err := h.accountService.WarmIDCache(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	return lambda.NewResponse(http.StatusOK, map[string]int{"cached": cached})
}
