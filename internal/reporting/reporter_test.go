package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSReporter(t *testing.T) {
	client := &fakeSQS{}
	reporter, err := NewSQSReporter(client, "https://sqs.eu-west-1.amazonaws.com/1/failed", nil)
	require.NoError(t, err)

	failure := &Failure{
		StatusCode:  500,
		Description: "storage unavailable",
		Request:     json.RawMessage(`{"action":"create_trip"}`),
	}
	require.NoError(t, reporter.Report(context.Background(), failure))
	require.Len(t, client.inputs, 1)

	assert.Equal(t, "https://sqs.eu-west-1.amazonaws.com/1/failed", aws.ToString(client.inputs[0].QueueUrl))
	assert.JSONEq(t,
		`{"status_code":500,"description":"storage unavailable","request":{"action":"create_trip"}}`,
		aws.ToString(client.inputs[0].MessageBody))
}

func TestSQSReporterErrors(t *testing.T) {
	_, err := NewSQSReporter(nil, "url", nil)
	assert.Error(t, err)

	_, err = NewSQSReporter(&fakeSQS{}, "", nil)
	assert.Error(t, err)

	reporter, err := NewSQSReporter(&fakeSQS{err: errors.New("throttled")}, "url", nil)
	require.NoError(t, err)
	assert.Error(t, reporter.Report(context.Background(), &Failure{StatusCode: 502}))
}

func TestNoopReporter(t *testing.T) {
	var reporter Reporter = NoopReporter{}
	assert.NoError(t, reporter.Report(context.Background(), &Failure{StatusCode: 500}))
}
