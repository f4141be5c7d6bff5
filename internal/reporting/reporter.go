package reporting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"
)

// Failure describes an invocation that ended with a server-side error
type Failure struct {
	StatusCode  int             `json:"status_code"`
	Description string          `json:"description"`
	Request     json.RawMessage `json:"request"`
}

// Reporter publishes failures for later inspection
type Reporter interface {
	Report(ctx context.Context, failure *Failure) error
}

// SQSAPI is the subset of the SQS client used by SQSReporter
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSReporter sends each failure as one message to a queue
type SQSReporter struct {
	client   SQSAPI
	queueURL string
	logger   *logrus.Logger
}

// NewSQSReporter creates a reporter publishing to queueURL
func NewSQSReporter(client SQSAPI, queueURL string, logger *logrus.Logger) (*SQSReporter, error) {
	if client == nil {
		return nil, fmt.Errorf("sqs client cannot be nil")
	}
	if queueURL == "" {
		return nil, fmt.Errorf("queue url is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SQSReporter{client: client, queueURL: queueURL, logger: logger}, nil
}

// NewSQSClient creates an SQS client from an AWS configuration
func NewSQSClient(cfg aws.Config) *sqs.Client {
	return sqs.NewFromConfig(cfg)
}

// Report implements Reporter
func (r *SQSReporter) Report(ctx context.Context, failure *Failure) error {
	body, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("failed to encode failure: %w", err)
	}

	out, err := r.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send failure report: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"message_id":  aws.ToString(out.MessageId),
		"status_code": failure.StatusCode,
	}).Debug("Failure reported")
	return nil
}

// NoopReporter discards failures
type NoopReporter struct{}

// Report implements Reporter
func (NoopReporter) Report(ctx context.Context, failure *Failure) error { return nil }
