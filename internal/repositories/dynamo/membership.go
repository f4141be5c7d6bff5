package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// MembershipStore implements repositories.MembershipStore with conditional
// updates. Removal is a compare-and-swap on the list index.
type MembershipStore struct {
	users       table
	trips       table
	maxAttempts int
	logger      *logrus.Logger
}

// NewMembershipStore creates a new DynamoDB membership store
func NewMembershipStore(api API, tables repositories.TableConfig, maxAttempts int, logger *logrus.Logger) *MembershipStore {
	if logger == nil {
		logger = logrus.New()
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &MembershipStore{
		users:       newTable(api, tables.Users, "user_id", repositories.EntityUser, logger),
		trips:       newTable(api, tables.Trips, "trip_id", repositories.EntityTrip, logger),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (m *MembershipStore) tableFor(ref repositories.ListRef) (*table, error) {
	if ref.List != models.ListAwaitingApproval && ref.List != models.ListApproved {
		return nil, repositories.NewRepositoryError("list", string(ref.Entity), strconv.FormatInt(ref.ID, 10),
			fmt.Errorf("%w: unknown list %q", repositories.ErrUnsupported, ref.List))
	}

	switch ref.Entity {
	case repositories.EntityUser:
		return &m.users, nil
	case repositories.EntityTrip:
		return &m.trips, nil
	default:
		return nil, repositories.NewRepositoryError("list", string(ref.Entity), strconv.FormatInt(ref.ID, 10),
			fmt.Errorf("%w: no membership lists on %s", repositories.ErrUnsupported, ref.Entity))
	}
}

// readRaw returns the raw list elements; the record must exist
func (m *MembershipStore) readRaw(ctx context.Context, t *table, ref repositories.ListRef) ([]types.AttributeValue, error) {
	item, err := t.getItem(ctx, ref.ID, t.key, string(ref.List))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, repositories.NotFoundError(string(ref.Entity), strconv.FormatInt(ref.ID, 10))
	}
	return listElements(item[string(ref.List)]), nil
}

// ReadList returns the current contents of a list
func (m *MembershipStore) ReadList(ctx context.Context, ref repositories.ListRef) ([]int64, error) {
	t, err := m.tableFor(ref)
	if err != nil {
		return nil, err
	}

	raw, err := m.readRaw(ctx, t, ref)
	if err != nil {
		return nil, err
	}

	list := make([]int64, 0, len(raw))
	for _, elem := range raw {
		if id, ok := parseID(elem); ok {
			list = append(list, id)
		}
	}
	return list, nil
}

// RemoveFromList removes the first occurrence of value. The update is
// guarded by the element still being at the observed index; on conflict
// the list is re-read, up to maxAttempts times.
func (m *MembershipStore) RemoveFromList(ctx context.Context, ref repositories.ListRef, value int64) error {
	t, err := m.tableFor(ref)
	if err != nil {
		return err
	}
	id := strconv.FormatInt(ref.ID, 10)

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		raw, err := m.readRaw(ctx, t, ref)
		if err != nil {
			return err
		}

		index := indexOfElement(raw, strconv.FormatInt(value, 10))
		if index < 0 {
			return repositories.ValueAbsentError(string(ref.Entity), id, string(ref.List), value)
		}

		err = removeAt(ctx, t, ref.ID, string(ref.List), index, raw[index])
		if err == nil {
			return nil
		}
		if !isConditionalCheckFailed(err) {
			return repositories.NewRepositoryError("remove", string(ref.Entity), id, err)
		}

		m.logger.WithFields(logrus.Fields{
			"list":    ref.String(),
			"value":   value,
			"attempt": attempt,
		}).Debug("List changed during removal, retrying")
	}

	return repositories.NewRepositoryError("remove", string(ref.Entity), id, repositories.ErrConcurrency)
}

// indexOfElement finds target by its textual form, so "07" does not match 7
func indexOfElement(raw []types.AttributeValue, target string) int {
	for i, elem := range raw {
		if s, ok := elementString(elem); ok && s == target {
			return i
		}
	}
	return -1
}

// removeAt removes list[index] if it still holds observed
func removeAt(ctx context.Context, t *table, key int64, list string, index int, observed types.AttributeValue) error {
	path := fmt.Sprintf("#l[%d]", index)

	start := time.Now()
	_, err := t.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.keyOf(key),
		UpdateExpression:          aws.String("REMOVE " + path),
		ConditionExpression:       aws.String(path + " = :observed"),
		ExpressionAttributeNames:  map[string]string{"#l": list},
		ExpressionAttributeValues: map[string]types.AttributeValue{":observed": observed},
	})
	t.logCall("remove", strconv.FormatInt(key, 10), start, err)
	return err
}

// AppendAll applies every append in one transaction. Each item requires its
// record to exist and the value to be absent from both lists.
func (m *MembershipStore) AppendAll(ctx context.Context, appends ...repositories.ListAppend) error {
	if len(appends) == 0 {
		return nil
	}

	items := make([]types.TransactWriteItem, 0, len(appends))
	for _, a := range appends {
		t, err := m.tableFor(a.Ref)
		if err != nil {
			return err
		}

		other := models.ListApproved
		if a.Ref.List == models.ListApproved {
			other = models.ListAwaitingApproval
		}

		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:        aws.String(t.name),
				Key:              t.keyOf(a.Ref.ID),
				UpdateExpression: aws.String("SET #l = list_append(if_not_exists(#l, :empty), :append)"),
				ConditionExpression: aws.String("attribute_exists(#k)" +
					" AND NOT contains(#l, :n) AND NOT contains(#l, :s)" +
					" AND NOT contains(#o, :n) AND NOT contains(#o, :s)"),
				ExpressionAttributeNames: map[string]string{
					"#k": t.key,
					"#l": string(a.Ref.List),
					"#o": string(other),
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":empty":  &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
					":append": &types.AttributeValueMemberL{Value: []types.AttributeValue{numberValue(a.Value)}},
					":n":      numberValue(a.Value),
					":s":      &types.AttributeValueMemberS{Value: strconv.FormatInt(a.Value, 10)},
				},
			},
		})
	}

	first := appends[0].Ref
	start := time.Now()
	_, err := m.users.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil && !isTransactionConditionFailed(err) {
		m.logger.WithError(err).WithField("items", len(items)).Error("Membership transaction failed")
	} else {
		m.logger.WithFields(logrus.Fields{
			"items":    len(items),
			"duration": time.Since(start),
		}).Debug("Membership transaction executed")
	}

	if isTransactionConditionFailed(err) {
		return repositories.ConditionError("append", string(first.Entity), strconv.FormatInt(first.ID, 10))
	}
	if err != nil {
		return repositories.NewRepositoryError("append", string(first.Entity), strconv.FormatInt(first.ID, 10), err)
	}
	return nil
}

const cachedIDsAttribute = "cached_user_ids"

// IDCacheRepository implements repositories.IDCacheRepository on the
// cached_user_ids list of the users-table cache record
type IDCacheRepository struct {
	table
	maxAttempts int
}

// NewIDCacheRepository creates a new DynamoDB ID cache repository
func NewIDCacheRepository(api API, tables repositories.TableConfig, maxAttempts int, logger *logrus.Logger) *IDCacheRepository {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &IDCacheRepository{
		table:       newTable(api, tables.Users, "user_id", repositories.EntityIDCache, logger),
		maxAttempts: maxAttempts,
	}
}

func (r *IDCacheRepository) readRaw(ctx context.Context) ([]types.AttributeValue, error) {
	item, err := r.getItem(ctx, models.CacheRecordID, cachedIDsAttribute)
	if err != nil {
		return nil, err
	}
	return listElements(item[cachedIDsAttribute]), nil
}

// CachedIDs returns the cached IDs, empty when the record does not exist yet
func (r *IDCacheRepository) CachedIDs(ctx context.Context) ([]int64, error) {
	raw, err := r.readRaw(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(raw))
	for _, elem := range raw {
		if id, ok := parseID(elem); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// AppendCachedID adds id to the end of the cache, creating the record on first use
func (r *IDCacheRepository) AppendCachedID(ctx context.Context, id int64) error {
	key := strconv.FormatInt(models.CacheRecordID, 10)

	start := time.Now()
	_, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.name),
		Key:                      r.keyOf(models.CacheRecordID),
		UpdateExpression:         aws.String("SET #c = list_append(if_not_exists(#c, :empty), :append)"),
		ConditionExpression:      aws.String("NOT contains(#c, :n) AND NOT contains(#c, :s)"),
		ExpressionAttributeNames: map[string]string{"#c": cachedIDsAttribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty":  &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":append": &types.AttributeValueMemberL{Value: []types.AttributeValue{numberValue(id)}},
			":n":      numberValue(id),
			":s":      &types.AttributeValueMemberS{Value: strconv.FormatInt(id, 10)},
		},
	})
	r.logCall("append", key, start, err)
	if isConditionalCheckFailed(err) {
		return repositories.ConditionError("append", string(r.entity), key)
	}
	if err != nil {
		return repositories.NewRepositoryError("append", string(r.entity), key, err)
	}
	return nil
}

// PopCachedID removes and returns the front element with a
// compare-and-swap on index 0
func (r *IDCacheRepository) PopCachedID(ctx context.Context) (int64, error) {
	key := strconv.FormatInt(models.CacheRecordID, 10)

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		raw, err := r.readRaw(ctx)
		if err != nil {
			return 0, err
		}
		if len(raw) == 0 {
			return 0, repositories.NewRepositoryError("pop", string(r.entity), key, repositories.ErrCacheEmpty)
		}

		id, ok := parseID(raw[0])
		if !ok {
			return 0, repositories.NewRepositoryError("pop", string(r.entity), key,
				fmt.Errorf("cache front element %T is not an id", raw[0]))
		}

		err = removeAt(ctx, &r.table, models.CacheRecordID, cachedIDsAttribute, 0, raw[0])
		if err == nil {
			return id, nil
		}
		if !isConditionalCheckFailed(err) {
			return 0, repositories.NewRepositoryError("pop", string(r.entity), key, err)
		}

		r.logger.WithFields(logrus.Fields{
			"observed": id,
			"attempt":  attempt,
		}).Debug("Cache front changed during pop, retrying")
	}

	return 0, repositories.NewRepositoryError("pop", string(r.entity), key, repositories.ErrConcurrency)
}
