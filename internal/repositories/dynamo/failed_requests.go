package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// FailedRequestRepository implements repositories.FailedRequestRepository
type FailedRequestRepository struct {
	table
}

// NewFailedRequestRepository creates a new DynamoDB failed request repository
func NewFailedRequestRepository(api API, tables repositories.TableConfig, logger *logrus.Logger) *FailedRequestRepository {
	return &FailedRequestRepository{
		table: newTable(api, tables.FailedRequests, "request_id", repositories.EntityFailedRequest, logger),
	}
}

// Create stores a failed request
func (r *FailedRequestRepository) Create(ctx context.Context, req *models.FailedRequest) error {
	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return repositories.NewRepositoryError("create", string(r.entity), req.RequestID, err)
	}
	return r.putNew(ctx, req.RequestID, item)
}

// GetByID retrieves a failed request
func (r *FailedRequestRepository) GetByID(ctx context.Context, requestID string) (*models.FailedRequest, error) {
	start := time.Now()
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.name),
		Key:       map[string]types.AttributeValue{r.key: &types.AttributeValueMemberS{Value: requestID}},
	})
	r.logCall("get", requestID, start, err)
	if err != nil {
		return nil, repositories.NewRepositoryError("get", string(r.entity), requestID, err)
	}
	if len(out.Item) == 0 {
		return nil, repositories.NotFoundError(string(r.entity), requestID)
	}

	var req models.FailedRequest
	if err := attributevalue.UnmarshalMap(out.Item, &req); err != nil {
		return nil, fmt.Errorf("decode failed request item: %w", err)
	}
	return &req, nil
}
