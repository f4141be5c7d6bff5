package main

import (
	"context"
	"net/http"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"trip-planner-api/pkg/lambda"
	"trip-planner-api/pkg/server"
)

var connections = lambda.NewConnectionManager(server.NewFromEnvironment)

func handler(ctx context.Context, event *lambda.Event) *lambda.Response {
	if err := connections.Refresh(lambda.DefaultMaxIdle); err != nil {
		logrus.WithError(err).Warn("Failed to close idle container")
	}

	container, err := connections.Get(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize container")
		resp := lambda.StatusText(http.StatusInternalServerError)
		resp.Details = err.Error()
		return resp
	}

	return container.TripHandler()(ctx, event)
}

func main() {
	awslambda.Start(lambda.Adapt(handler))
}
