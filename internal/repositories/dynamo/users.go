package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// UserRepository implements repositories.UserRepository on the users table
type UserRepository struct {
	table
	emailIndex string
}

// NewUserRepository creates a new DynamoDB user repository
func NewUserRepository(api API, tables repositories.TableConfig, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		table:      newTable(api, tables.Users, "user_id", repositories.EntityUser, logger),
		emailIndex: tables.EmailIndex,
	}
}

// Create stores a new user, conditional on the key being unused
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	id := strconv.FormatInt(user.UserID, 10)
	if user.UserID == models.CacheRecordID {
		return repositories.DuplicateError(string(r.entity), "user_id", id)
	}

	item, err := attributevalue.MarshalMap(newUserItem(user))
	if err != nil {
		return repositories.NewRepositoryError("create", string(r.entity), id, err)
	}
	return r.putNew(ctx, id, item)
}

func (t *table) putNew(ctx context.Context, id string, item map[string]types.AttributeValue) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(t.key))).
		Build()
	if err != nil {
		return repositories.NewRepositoryError("create", string(t.entity), id, err)
	}

	start := time.Now()
	_, err = t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(t.name),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	t.logCall("create", id, start, err)
	if isConditionalCheckFailed(err) {
		return repositories.DuplicateError(string(t.entity), t.key, id)
	}
	if err != nil {
		return repositories.NewRepositoryError("create", string(t.entity), id, err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	key := strconv.FormatInt(id, 10)
	if id == models.CacheRecordID {
		return nil, repositories.NotFoundError(string(r.entity), key)
	}

	item, err := r.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, repositories.NotFoundError(string(r.entity), key)
	}
	return decodeUser(item)
}

// GetByEmail retrieves a user through the email index
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("email").Equal(expression.Value(email))).
		Build()
	if err != nil {
		return nil, repositories.NewRepositoryError("get_by_email", string(r.entity), email, err)
	}

	items, err := r.query(ctx, "get_by_email", &dynamodb.QueryInput{
		TableName:                 aws.String(r.name),
		IndexName:                 aws.String(r.emailIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repositories.NotFoundError(string(r.entity), email)
	}
	return decodeUser(items[0])
}

// Exists reports whether the user ID is taken. The cache record ID is
// always reserved.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if id == models.CacheRecordID {
		return true, nil
	}
	return r.exists(ctx, id)
}

func decodeUser(item map[string]types.AttributeValue) (*models.User, error) {
	var u userItem
	if err := attributevalue.UnmarshalMap(item, &u); err != nil {
		return nil, fmt.Errorf("decode user item: %w", err)
	}
	return u.toModel(), nil
}

// query runs every page of a query
func (t *table) query(ctx context.Context, operation string, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	start := time.Now()
	paginator := dynamodb.NewQueryPaginator(t.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			t.logCall(operation, "", start, err)
			return nil, repositories.NewRepositoryError(operation, string(t.entity), "", err)
		}
		items = append(items, page.Items...)
	}
	t.logCall(operation, "", start, nil)
	return items, nil
}
