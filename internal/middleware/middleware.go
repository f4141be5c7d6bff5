package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/reporting"
	"trip-planner-api/pkg/lambda"
)

// sensitiveFields never leave the invocation in a failure report
var sensitiveFields = map[string]struct{}{
	"password": {},
}

// reportedRequest serializes the event for a failure report without its
// sensitive body fields. A body that is not a JSON object is dropped.
func reportedRequest(event *lambda.Event) []byte {
	report := lambda.Event{HTTPMethod: event.HTTPMethod, Action: event.Action}

	var body map[string]any
	if err := event.DecodeBody(&body); err == nil {
		for key := range body {
			if _, ok := sensitiveFields[strings.ToLower(key)]; ok {
				delete(body, key)
			}
		}
		if len(body) > 0 {
			if encoded, err := json.Marshal(body); err == nil {
				report.Body = encoded
			}
		}
	}

	request, err := json.Marshal(report)
	if err != nil {
		return nil
	}
	return request
}

// ReportFailures publishes every invocation that ends with a 5xx response.
// A failed publish is logged and does not change the response.
func ReportFailures(reporter reporting.Reporter, logger *logrus.Logger) lambda.Middleware {
	return func(next lambda.HandlerFunc) lambda.HandlerFunc {
		return func(ctx context.Context, event *lambda.Event) *lambda.Response {
			resp := next(ctx, event)
			if !resp.Failed() {
				return resp
			}

			request := reportedRequest(event)

			description := resp.Details
			if description == "" {
				description = fmt.Sprint(resp.Body)
			}

			failure := &reporting.Failure{
				StatusCode:  resp.StatusCode,
				Description: description,
				Request:     request,
			}
			if err := reporter.Report(ctx, failure); err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					RequestIDKey:  RequestIDFrom(ctx),
					"action":      event.Action,
					"status_code": resp.StatusCode,
				}).Error("Failed to report failed request")
			}
			return resp
		}
	}
}
