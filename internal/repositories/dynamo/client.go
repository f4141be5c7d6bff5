// Package dynamo implements the repositories on DynamoDB. Membership lists
// are list attributes on the user and trip items; the ID cache is the
// cached_user_ids list on the users-table item keyed by models.CacheRecordID.
package dynamo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/repositories"
)

// API is the subset of the DynamoDB client used by the repositories
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// NewClient creates a DynamoDB client. A non-empty endpoint overrides the
// service endpoint, for DynamoDB Local or LocalStack.
func NewClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

type table struct {
	api    API
	name   string
	key    string
	entity repositories.Entity
	logger *logrus.Logger
}

func newTable(api API, name, key string, entity repositories.Entity, logger *logrus.Logger) table {
	if logger == nil {
		logger = logrus.New()
	}
	return table{api: api, name: name, key: key, entity: entity, logger: logger}
}

func (t *table) keyOf(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{t.key: numberValue(id)}
}

// logCall logs a DynamoDB call with its duration
func (t *table) logCall(operation string, id string, start time.Time, err error) {
	fields := logrus.Fields{
		"operation": operation,
		"table":     t.name,
		"entity":    t.entity,
		"duration":  time.Since(start),
	}
	if id != "" {
		fields["id"] = id
	}

	if err != nil && !isConditionalCheckFailed(err) {
		fields["error"] = err.Error()
		t.logger.WithFields(fields).Error("DynamoDB call failed")
	} else {
		t.logger.WithFields(fields).Debug("DynamoDB call executed")
	}
}

// getItem reads one item by numeric key. A missing item returns a nil map.
func (t *table) getItem(ctx context.Context, id int64, projection ...string) (map[string]types.AttributeValue, error) {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            t.keyOf(id),
		ConsistentRead: aws.Bool(true),
	}
	if len(projection) > 0 {
		input.ExpressionAttributeNames = map[string]string{}
		expr := ""
		for i, name := range projection {
			placeholder := "#p" + strconv.Itoa(i)
			input.ExpressionAttributeNames[placeholder] = name
			if i > 0 {
				expr += ", "
			}
			expr += placeholder
		}
		input.ProjectionExpression = aws.String(expr)
	}

	start := time.Now()
	out, err := t.api.GetItem(ctx, input)
	t.logCall("get", strconv.FormatInt(id, 10), start, err)
	if err != nil {
		return nil, repositories.NewRepositoryError("get", string(t.entity), strconv.FormatInt(id, 10), err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

func (t *table) exists(ctx context.Context, id int64) (bool, error) {
	item, err := t.getItem(ctx, id, t.key)
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// isTransactionConditionFailed reports whether a transaction was cancelled
// because one of its conditions did not hold
func isTransactionConditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func numberValue(id int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)}
}
