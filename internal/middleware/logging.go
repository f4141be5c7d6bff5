package middleware

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trip-planner-api/pkg/lambda"
)

// RequestIDKey is the log field carrying the invocation's request ID
const RequestIDKey = "request_id"

type requestIDKey struct{}

// RequestIDFrom returns the request ID stored by InvocationLogger, if any
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.New().String()
}

// InvocationLogger logs every invocation with its outcome and latency
func InvocationLogger(logger *logrus.Logger) lambda.Middleware {
	return func(next lambda.HandlerFunc) lambda.HandlerFunc {
		return func(ctx context.Context, event *lambda.Event) *lambda.Response {
			start := time.Now()
			id := requestID(ctx)
			ctx = context.WithValue(ctx, requestIDKey{}, id)

			resp := next(ctx, event)

			fields := logrus.Fields{
				RequestIDKey:  id,
				"method":      event.HTTPMethod,
				"action":      event.Action,
				"status_code": resp.StatusCode,
				"latency_ms":  float64(time.Since(start).Nanoseconds()) / 1000000,
			}
			if resp.Details != "" && resp.StatusCode >= 400 {
				fields["details"] = resp.Details
			}

			entry := logger.WithFields(fields)
			switch {
			case resp.StatusCode >= 500:
				entry.Error("Invocation failed")
			case resp.StatusCode >= 400:
				entry.Warn("Invocation rejected")
			default:
				entry.Info("Invocation completed")
			}
			return resp
		}
	}
}
