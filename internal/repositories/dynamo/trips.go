package dynamo

import (
	"context"
	"fmt"
	"sort"
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

// TripRepository implements repositories.TripRepository on the trips table
type TripRepository struct {
	table
	locationIndex string
	adminIndex    string
}

// NewTripRepository creates a new DynamoDB trip repository
func NewTripRepository(api API, tables repositories.TableConfig, logger *logrus.Logger) *TripRepository {
	return &TripRepository{
		table:         newTable(api, tables.Trips, "trip_id", repositories.EntityTrip, logger),
		locationIndex: tables.LocationIndex,
		adminIndex:    tables.AdminIndex,
	}
}

// Create stores a new trip, conditional on the key being unused
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	id := strconv.FormatInt(trip.TripID, 10)

	item, err := attributevalue.MarshalMap(newTripItem(trip))
	if err != nil {
		return repositories.NewRepositoryError("create", string(r.entity), id, err)
	}
	return r.putNew(ctx, id, item)
}

// GetByID retrieves a trip by ID
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	item, err := r.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, repositories.NotFoundError(string(r.entity), strconv.FormatInt(id, 10))
	}
	return decodeTrip(item)
}

// Delete removes a trip record
func (r *TripRepository) Delete(ctx context.Context, id int64) error {
	key := strconv.FormatInt(id, 10)

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(r.key))).
		Build()
	if err != nil {
		return repositories.NewRepositoryError("delete", string(r.entity), key, err)
	}

	start := time.Now()
	_, err = r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.name),
		Key:                      r.keyOf(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	r.logCall("delete", key, start, err)
	if isConditionalCheckFailed(err) {
		return repositories.NotFoundError(string(r.entity), key)
	}
	if err != nil {
		return repositories.NewRepositoryError("delete", string(r.entity), key, err)
	}
	return nil
}

// Exists reports whether the trip ID is taken
func (r *TripRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, id)
}

// ListByLocation queries the location index
func (r *TripRepository) ListByLocation(ctx context.Context, location string) ([]*models.Trip, error) {
	return r.queryIndex(ctx, "list_by_location", r.locationIndex, expression.Key("location").Equal(expression.Value(location)))
}

// ListByAdmin queries the admin index
func (r *TripRepository) ListByAdmin(ctx context.Context, adminID int64) ([]*models.Trip, error) {
	return r.queryIndex(ctx, "list_by_admin", r.adminIndex, expression.Key("admin_id").Equal(expression.Value(adminID)))
}

func (r *TripRepository) queryIndex(ctx context.Context, operation, index string, key expression.KeyConditionBuilder) ([]*models.Trip, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, repositories.NewRepositoryError(operation, string(r.entity), "", err)
	}

	items, err := r.query(ctx, operation, &dynamodb.QueryInput{
		TableName:                 aws.String(r.name),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, err
	}
	return decodeTrips(items)
}

// List scans every trip
func (r *TripRepository) List(ctx context.Context) ([]*models.Trip, error) {
	var items []map[string]types.AttributeValue

	start := time.Now()
	paginator := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{TableName: aws.String(r.name)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logCall("list", "", start, err)
			return nil, repositories.NewRepositoryError("list", string(r.entity), "", err)
		}
		items = append(items, page.Items...)
	}
	r.logCall("list", "", start, nil)

	return decodeTrips(items)
}

func decodeTrip(item map[string]types.AttributeValue) (*models.Trip, error) {
	var t tripItem
	if err := attributevalue.UnmarshalMap(item, &t); err != nil {
		return nil, fmt.Errorf("decode trip item: %w", err)
	}
	return t.toModel(), nil
}

// decodeTrips decodes items ordered by trip ID
func decodeTrips(items []map[string]types.AttributeValue) ([]*models.Trip, error) {
	trips := make([]*models.Trip, 0, len(items))
	for _, item := range items {
		trip, err := decodeTrip(item)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].TripID < trips[j].TripID })
	return trips, nil
}
