package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-api/internal/ids"
	"trip-planner-api/internal/membership"
	"trip-planner-api/internal/models"
	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
	"trip-planner-api/internal/repositories/memory"
)

func counter(start int64) randomid.Source {
	var next atomic.Int64
	next.Store(start)
	return randomid.SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
		return next.Add(1), nil
	})
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func setupServices(t *testing.T) (*ServiceContainer, *memory.Manager) {
	t.Helper()
	repos := memory.NewManager()
	container, err := NewServiceContainer(repos, &ServiceConfig{
		RandomSource:  counter(1000),
		MaxIDAttempts: 3,
		CacheLowWater: 2,
		Logger:        quietLogger(),
	})
	require.NoError(t, err)
	return container, repos
}

func createUser(t *testing.T, s AccountService, email string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), &CreateUserRequest{Email: email, Password: "secret123"})
	require.NoError(t, err)
	return user
}

func createTrip(t *testing.T, s TripService, adminID int64, location string) *models.Trip {
	t.Helper()
	trip, err := s.CreateTrip(context.Background(), &CreateTripRequest{
		AdminID:   adminID,
		StartDate: 1700000000,
		EndDate:   1700500000,
		Location:  location,
		Title:     "summer hike",
	})
	require.NoError(t, err)
	return trip
}

func TestNewServiceContainer(t *testing.T) {
	_, err := NewServiceContainer(nil, &ServiceConfig{RandomSource: counter(0)})
	assert.Error(t, err)

	_, err = NewServiceContainer(memory.NewManager(), &ServiceConfig{})
	assert.Error(t, err)
}

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	container, _ := setupServices(t)
	accounts := container.AccountService

	user := createUser(t, accounts, " Alice@Example.com ")
	assert.Greater(t, user.UserID, models.CacheRecordID)
	assert.Equal(t, "alice@example.com", user.Email)

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := accounts.CreateUser(ctx, &CreateUserRequest{Email: "alice@example.com", Password: "another1"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, err := accounts.CreateUser(ctx, &CreateUserRequest{Email: "not-an-email", Password: "123"})
		require.ErrorIs(t, err, ErrInvalidInput)

		var validationErrors validator.ValidationErrors
		require.True(t, errors.As(err, &validationErrors))
		assert.Len(t, validationErrors, 2)
	})

	t.Run("Login", func(t *testing.T) {
		id, err := accounts.Login(ctx, &LoginRequest{Email: "ALICE@example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, user.UserID, id)

		_, err = accounts.Login(ctx, &LoginRequest{Email: "alice@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = accounts.Login(ctx, &LoginRequest{Email: "bob@example.com", Password: "secret123"})
		assert.True(t, repositories.IsNotFound(err))
	})

	t.Run("GetEmail", func(t *testing.T) {
		email, err := accounts.GetEmail(ctx, &UserRequest{UserID: user.UserID})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", email)

		_, err = accounts.GetEmail(ctx, &UserRequest{UserID: 424242})
		assert.True(t, repositories.IsNotFound(err))
	})

	t.Run("WarmIDCache", func(t *testing.T) {
		length, err := accounts.WarmIDCache(ctx, &WarmCacheRequest{Target: 4})
		require.NoError(t, err)
		assert.Equal(t, 4, length)

		length, err = accounts.WarmIDCache(ctx, &WarmCacheRequest{})
		require.NoError(t, err)
		assert.Equal(t, 4, length, "default target is below the current length")
	})
}

type allocatorFunc func(ctx context.Context) (int64, error)

func (f allocatorFunc) Allocate(ctx context.Context) (int64, error) { return f(ctx) }

func TestCreateUserRejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewManager()
	negative := allocatorFunc(func(ctx context.Context) (int64, error) { return -5, nil })
	accounts := NewAccountService(repos.Users(), negative, nil, 0, NewValidator(), quietLogger())

	_, err := accounts.CreateUser(ctx, &CreateUserRequest{Email: "carol@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user ID must be positive")

	_, err = repos.Users().GetByEmail(ctx, "carol@example.com")
	assert.True(t, repositories.IsNotFound(err))
}

func TestAccountServiceFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewManager()
	for _, id := range []int64{70, 71} {
		require.NoError(t, repos.IDCache().AppendCachedID(ctx, id))
	}

	broken := randomid.SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
		return 0, &randomid.UpstreamError{Endpoint: "test", Kind: randomid.ErrUpstreamFormat, Err: errors.New("garbage")}
	})
	container, err := NewServiceContainer(repos, &ServiceConfig{
		RandomSource:  broken,
		CacheLowWater: 1,
		Logger:        quietLogger(),
	})
	require.NoError(t, err)

	user := createUser(t, container.AccountService, "carol@example.com")
	assert.Equal(t, int64(70), user.UserID)

	cached, err := repos.IDCache().CachedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{71}, cached)

	length, err := container.AccountService.WarmIDCache(ctx, &WarmCacheRequest{Target: 3})
	require.NoError(t, err, "a partially filled cache is not an error")
	assert.Equal(t, 1, length)

	second := createUser(t, container.AccountService, "dave@example.com")
	assert.Equal(t, int64(71), second.UserID)

	_, err = container.AccountService.WarmIDCache(ctx, &WarmCacheRequest{Target: 3})
	assert.True(t, randomid.IsFormat(err))

	_, err = container.AccountService.CreateUser(ctx, &CreateUserRequest{Email: "erin@example.com", Password: "secret123"})
	assert.True(t, errors.Is(err, ids.ErrAllocationExhausted))
}

func TestTripServiceCreateAndQuery(t *testing.T) {
	ctx := context.Background()
	container, _ := setupServices(t)
	trips := container.TripService

	admin := createUser(t, container.AccountService, "admin@example.com")
	trip := createTrip(t, trips, admin.UserID, "  new   YORK ")

	assert.Equal(t, "New York", trip.Location)
	assert.Equal(t, "Summer Hike", trip.Title)
	assert.Empty(t, trip.AwaitingApproval)
	assert.Empty(t, trip.Approved)

	t.Run("InvalidDates", func(t *testing.T) {
		_, err := trips.CreateTrip(ctx, &CreateTripRequest{
			AdminID: admin.UserID, StartDate: 200, EndDate: 100, Location: "Rome", Title: "x",
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("GetTrip", func(t *testing.T) {
		got, err := trips.GetTrip(ctx, &TripRequest{TripID: trip.TripID})
		require.NoError(t, err)
		assert.Equal(t, trip.Title, got.Title)

		_, err = trips.GetTrip(ctx, &TripRequest{TripID: 1})
		assert.True(t, repositories.IsNotFound(err))
	})

	t.Run("ListByLocationNormalizesInput", func(t *testing.T) {
		found, err := trips.ListByLocation(ctx, &LocationRequest{Location: "new york"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, trip.TripID, found[0].TripID)

		_, err = trips.ListByLocation(ctx, &LocationRequest{Location: "Paris"})
		assert.True(t, repositories.IsNotFound(err))
	})

	t.Run("ListByAdmin", func(t *testing.T) {
		found, err := trips.ListByAdmin(ctx, &AdminRequest{AdminID: admin.UserID})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		_, err = trips.ListByAdmin(ctx, &AdminRequest{AdminID: admin.UserID + 1})
		assert.True(t, repositories.IsNotFound(err))
	})

	t.Run("ListAll", func(t *testing.T) {
		found, err := trips.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}

func TestTripServiceListAllEmpty(t *testing.T) {
	container, _ := setupServices(t)
	_, err := container.TripService.ListAll(context.Background())
	assert.True(t, repositories.IsNotFound(err))
}

func TestTripServiceMembership(t *testing.T) {
	ctx := context.Background()
	container, _ := setupServices(t)
	trips := container.TripService

	admin := createUser(t, container.AccountService, "admin@example.com")
	user := createUser(t, container.AccountService, "user@example.com")
	trip := createTrip(t, trips, admin.UserID, "Lisbon")
	pair := &MembershipRequest{UserID: user.UserID, TripID: trip.TripID}
	approve := true

	t.Run("UnknownRecords", func(t *testing.T) {
		err := trips.Apply(ctx, &MembershipRequest{UserID: user.UserID, TripID: 9})
		assert.True(t, repositories.IsNotFound(err))

		err = trips.Apply(ctx, &MembershipRequest{UserID: 9, TripID: trip.TripID})
		assert.True(t, repositories.IsNotFound(err))
	})

	t.Run("DecideWithoutApplication", func(t *testing.T) {
		err := trips.Decide(ctx, &DecisionRequest{UserID: user.UserID, TripID: trip.TripID, IsApproved: &approve})
		assert.ErrorIs(t, err, membership.ErrMemberNotFound)
	})

	t.Run("DecisionRequiresFlag", func(t *testing.T) {
		err := trips.Decide(ctx, &DecisionRequest{UserID: user.UserID, TripID: trip.TripID})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	require.NoError(t, trips.Apply(ctx, pair))
	assert.ErrorIs(t, trips.Apply(ctx, pair), membership.ErrDuplicateApplication)

	items, err := trips.ListForUser(ctx, &UserRequest{UserID: user.UserID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MembershipAwaiting, items[0].Status)

	require.NoError(t, trips.Decide(ctx, &DecisionRequest{UserID: user.UserID, TripID: trip.TripID, IsApproved: &approve}))

	items, err = trips.ListForUser(ctx, &UserRequest{UserID: user.UserID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MembershipApproved, items[0].Status)

	report, err := trips.Withdraw(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Removed())

	_, err = trips.ListForUser(ctx, &UserRequest{UserID: user.UserID})
	assert.True(t, repositories.IsNotFound(err))

	report, err = trips.Withdraw(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed())
	assert.NoError(t, report.Err())
}

func TestTripServiceDeleteDissolvesMemberships(t *testing.T) {
	ctx := context.Background()
	container, repos := setupServices(t)
	trips := container.TripService

	admin := createUser(t, container.AccountService, "admin@example.com")
	first := createUser(t, container.AccountService, "first@example.com")
	second := createUser(t, container.AccountService, "second@example.com")
	trip := createTrip(t, trips, admin.UserID, "Oslo")
	approve := true

	require.NoError(t, trips.Apply(ctx, &MembershipRequest{UserID: first.UserID, TripID: trip.TripID}))
	require.NoError(t, trips.Apply(ctx, &MembershipRequest{UserID: second.UserID, TripID: trip.TripID}))
	require.NoError(t, trips.Decide(ctx, &DecisionRequest{UserID: second.UserID, TripID: trip.TripID, IsApproved: &approve}))

	report, err := trips.DeleteTrip(ctx, &TripRequest{TripID: trip.TripID})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Removed())

	for _, id := range []int64{first.UserID, second.UserID} {
		user, err := repos.Users().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, user.AwaitingApproval)
		assert.Empty(t, user.Approved)
	}

	_, err = trips.GetTrip(ctx, &TripRequest{TripID: trip.TripID})
	assert.True(t, repositories.IsNotFound(err))

	_, err = trips.DeleteTrip(ctx, &TripRequest{TripID: trip.TripID})
	assert.True(t, repositories.IsNotFound(err))
}

func TestFailedRequestService(t *testing.T) {
	ctx := context.Background()
	container, repos := setupServices(t)

	record, err := container.FailedRequestService.Record(ctx, &FailedRequestMessage{
		StatusCode:  500,
		Description: "storage unavailable",
		Request:     []byte(`{"action":"create_trip"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.RequestID)

	stored, err := repos.FailedRequests().GetByID(ctx, record.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 500, stored.StatusCode)
	assert.Equal(t, `{"action":"create_trip"}`, stored.Request)

	_, err = container.FailedRequestService.Record(ctx, &FailedRequestMessage{StatusCode: 42})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
