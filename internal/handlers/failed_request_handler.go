package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/services"
)

// FailedRequestHandler stores failed-request messages delivered by SQS
type FailedRequestHandler struct {
	failedRequestService services.FailedRequestService
	logger               *logrus.Logger
}

// NewFailedRequestHandler creates a new failed request handler
func NewFailedRequestHandler(failedRequestService services.FailedRequestService, logger *logrus.Logger) *FailedRequestHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &FailedRequestHandler{failedRequestService: failedRequestService, logger: logger}
}

// HandleSQS records every message in the batch. Malformed messages are
// logged and dropped; storage failures are returned as batch item failures
// so SQS redelivers only those messages.
func (h *FailedRequestHandler) HandleSQS(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse

	for _, record := range event.Records {
		log := h.logger.WithField("message_id", record.MessageId)

		var msg services.FailedRequestMessage
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			log.WithError(err).Error("Dropping undecodable failed request message")
			continue
		}

		if _, err := h.failedRequestService.Record(ctx, &msg); err != nil {
			if errors.Is(err, services.ErrInvalidInput) {
				log.WithError(err).Error("Dropping invalid failed request message")
				continue
			}
			log.WithError(err).Warn("Failed to store failed request, will be retried")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	return resp, nil
}
