package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	config := repositories.DefaultConfig()
	config.SQLite.Path = filepath.Join(t.TempDir(), "trips.db")

	manager, err := Open(context.Background(), config, logger)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	user, err := models.NewUser(1, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, manager.Users().Create(context.Background(), user))
	require.NoError(t, manager.Trips().Create(context.Background(), models.NewTrip(10, 1, 100, 200, "rome", "city break", "")))

	return manager
}

func TestManagerHealth(t *testing.T) {
	m := setupManager(t)
	assert.NoError(t, m.Health(context.Background()))
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)

	t.Run("DuplicateID", func(t *testing.T) {
		user, _ := models.NewUser(1, "other@example.com", "pw")
		err := m.Users().Create(ctx, user)
		assert.True(t, repositories.IsDuplicate(err))
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		user, _ := models.NewUser(2, "ann@example.com", "pw")
		err := m.Users().Create(ctx, user)
		require.True(t, repositories.IsDuplicate(err))
		assert.Contains(t, err.Error(), "email")
	})

	t.Run("CacheRecordIDIsReserved", func(t *testing.T) {
		user, _ := models.NewUser(models.CacheRecordID, "zero@example.com", "pw")
		assert.True(t, repositories.IsDuplicate(m.Users().Create(ctx, user)))

		exists, err := m.Users().Exists(ctx, models.CacheRecordID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Lookups", func(t *testing.T) {
		user, err := m.Users().GetByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.UserID)
		assert.True(t, user.CheckPassword("pw"))
		assert.Empty(t, user.Approved)

		_, err = m.Users().GetByID(ctx, 404)
		assert.True(t, repositories.IsNotFound(err))

		exists, err := m.Users().Exists(ctx, 1)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = m.Users().Exists(ctx, 2)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestTripRepository(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)
	require.NoError(t, m.Trips().Create(ctx, models.NewTrip(11, 2, 100, 200, "Rome", "food tour", "pasta")))
	require.NoError(t, m.Trips().Create(ctx, models.NewTrip(12, 1, 100, 200, "Oslo", "fjords", "")))

	err := m.Trips().Create(ctx, models.NewTrip(12, 1, 100, 200, "Oslo", "again", ""))
	assert.True(t, repositories.IsDuplicate(err))

	trip, err := m.Trips().GetByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "Food Tour", trip.Title)
	assert.Equal(t, "pasta", trip.Description)

	byLocation, err := m.Trips().ListByLocation(ctx, "Rome")
	require.NoError(t, err)
	require.Len(t, byLocation, 2)
	assert.Equal(t, int64(10), byLocation[0].TripID)

	byAdmin, err := m.Trips().ListByAdmin(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byAdmin, 2)

	all, err := m.Trips().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := m.Trips().ListByLocation(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, m.Trips().Delete(ctx, 12))
	assert.True(t, repositories.IsNotFound(m.Trips().Delete(ctx, 12)))

	exists, err := m.Trips().Exists(ctx, 12)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAppendAllIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)
	store := m.Memberships()

	userRef := repositories.ListRef{Entity: repositories.EntityUser, ID: 1, List: models.ListAwaitingApproval}
	tripRef := repositories.ListRef{Entity: repositories.EntityTrip, ID: 10, List: models.ListAwaitingApproval}
	missing := repositories.ListRef{Entity: repositories.EntityTrip, ID: 99, List: models.ListAwaitingApproval}

	err := store.AppendAll(ctx,
		repositories.ListAppend{Ref: userRef, Value: 10},
		repositories.ListAppend{Ref: missing, Value: 1},
	)
	require.True(t, repositories.IsConditionFailed(err))

	list, err := store.ReadList(ctx, userRef)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.AppendAll(ctx,
		repositories.ListAppend{Ref: userRef, Value: 10},
		repositories.ListAppend{Ref: tripRef, Value: 1},
	))

	list, err = store.ReadList(ctx, tripRef)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, list)

	approvedRef := tripRef
	approvedRef.List = models.ListApproved
	err = store.AppendAll(ctx, repositories.ListAppend{Ref: approvedRef, Value: 1})
	assert.True(t, repositories.IsConditionFailed(err))

	trip, err := m.Trips().GetByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipAwaiting, trip.MembershipOf(1))
}

func TestRemoveFromListKeepsOrder(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)
	store := m.Memberships()
	ref := repositories.ListRef{Entity: repositories.EntityTrip, ID: 10, List: models.ListApproved}

	for _, v := range []int64{5, 6, 7} {
		require.NoError(t, store.AppendAll(ctx, repositories.ListAppend{Ref: ref, Value: v}))
	}

	require.NoError(t, store.RemoveFromList(ctx, ref, 6))
	list, err := store.ReadList(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, list)

	assert.True(t, repositories.IsValueAbsent(store.RemoveFromList(ctx, ref, 6)))

	missing := repositories.ListRef{Entity: repositories.EntityUser, ID: 42, List: models.ListApproved}
	assert.True(t, repositories.IsNotFound(store.RemoveFromList(ctx, missing, 1)))
}

func TestIDCache(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)
	cache := m.IDCache()

	ids, err := cache.CachedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = cache.PopCachedID(ctx)
	assert.True(t, repositories.IsCacheEmpty(err))

	for _, id := range []int64{30, 20, 40} {
		require.NoError(t, cache.AppendCachedID(ctx, id))
	}
	assert.True(t, repositories.IsConditionFailed(cache.AppendCachedID(ctx, 20)))

	ids, err = cache.CachedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 20, 40}, ids)

	id, err := cache.PopCachedID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30), id)

	ids, err = cache.CachedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 40}, ids)
}

func TestConcurrentPopsNeverDoubleServe(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)
	cache := m.IDCache()

	const n = 20
	for i := int64(1); i <= n; i++ {
		require.NoError(t, cache.AppendCachedID(ctx, 1000+i))
	}

	var (
		mu     sync.Mutex
		served = map[int64]bool{}
		wg     sync.WaitGroup
	)
	for i := 0; i < n+5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := cache.PopCachedID(ctx)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, served[id], "id %d served twice", id)
			served[id] = true
		}()
	}
	wg.Wait()

	assert.Len(t, served, n)
}

func TestFailedRequestRepository(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)

	req := models.NewFailedRequest(500, "boom", `{"action":"create_trip"}`)
	require.NoError(t, m.FailedRequests().Create(ctx, req))
	assert.True(t, repositories.IsDuplicate(m.FailedRequests().Create(ctx, req)))

	got, err := m.FailedRequests().GetByID(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, req, got)

	_, err = m.FailedRequests().GetByID(ctx, "missing")
	assert.True(t, repositories.IsNotFound(err))
}
