package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"trip-planner-api/pkg/lambda"
	"trip-planner-api/pkg/server"
)

var connections = lambda.NewConnectionManager(server.NewFromEnvironment)

// handler stores each queued failure. An initialization error fails the
// whole batch so SQS redelivers it.
func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	if err := connections.Refresh(lambda.DefaultMaxIdle); err != nil {
		logrus.WithError(err).Warn("Failed to close idle container")
	}

	container, err := connections.Get(ctx)
	if err != nil {
		return events.SQSEventResponse{}, err
	}

	return container.FailedRequestHandler().HandleSQS(ctx, event)
}

func main() {
	awslambda.Start(handler)
}
