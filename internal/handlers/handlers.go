package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"trip-planner-api/pkg/lambda"
)

type route struct {
	method string
	action string
}

// Router dispatches events by HTTP method and action
type Router struct {
	routes map[route]lambda.HandlerFunc
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{routes: make(map[route]lambda.HandlerFunc)}
}

// Handle registers h for the method and action
func (r *Router) Handle(method, action string, h lambda.HandlerFunc) {
	r.routes[route{method: strings.ToUpper(method), action: action}] = h
}

// Dispatch runs the handler registered for the event. Unknown pairs get a
// 400 Bad Request.
func (r *Router) Dispatch(ctx context.Context, event *lambda.Event) *lambda.Response {
	h, ok := r.routes[route{method: strings.ToUpper(event.HTTPMethod), action: event.Action}]
	if !ok {
		resp := lambda.StatusText(http.StatusBadRequest)
		resp.Details = fmt.Sprintf("no action %q for method %q", event.Action, event.HTTPMethod)
		return resp
	}
	return h(ctx, event)
}
