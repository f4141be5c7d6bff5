package lambda

import (
	"context"
	"encoding/json"
	"net/http"
)

// InvokeFunc is the signature handed to the Lambda runtime
type InvokeFunc func(ctx context.Context, payload json.RawMessage) (*Response, error)

// Adapt turns a HandlerFunc into a runtime handler. A payload that is not an
// event object is answered with 400 rather than a runtime error.
func Adapt(h HandlerFunc) InvokeFunc {
	return func(ctx context.Context, payload json.RawMessage) (*Response, error) {
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			resp := StatusText(http.StatusBadRequest)
			resp.Details = "invalid event: " + err.Error()
			return resp, nil
		}
		return h(ctx, &event), nil
	}
}
