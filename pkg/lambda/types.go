package lambda

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// Event is the invocation payload shared by the account and trip functions
type Event struct {
	HTTPMethod string          `json:"httpMethod"`
	Action     string          `json:"action"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Response is the status-coded result returned to the caller
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       any    `json:"body,omitempty"`
	Details    string `json:"details,omitempty"`
}

// HandlerFunc handles one decoded event
type HandlerFunc func(ctx context.Context, event *Event) *Response

// Middleware wraps a HandlerFunc
type Middleware func(next HandlerFunc) HandlerFunc

// Chain applies middlewares so that the first one listed runs outermost
func Chain(h HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// DecodeBody unmarshals the event body into v. The body may be an object or
// a JSON string holding one, as API Gateway proxies deliver it.
func (e *Event) DecodeBody(v any) error {
	body := bytes.TrimSpace(e.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		body = []byte("{}")
	}

	if body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return err
		}
		body = []byte(inner)
		if len(bytes.TrimSpace(body)) == 0 {
			body = []byte("{}")
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	return decoder.Decode(v)
}

// NewResponse creates a response with a body
func NewResponse(statusCode int, body any) *Response {
	return &Response{StatusCode: statusCode, Body: body}
}

// StatusText returns a response carrying only the standard status text
func StatusText(statusCode int) *Response {
	return &Response{StatusCode: statusCode, Body: http.StatusText(statusCode)}
}

// Failed reports whether the response is a server-side failure
func (r *Response) Failed() bool {
	return r.StatusCode >= http.StatusInternalServerError
}
