package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// Manager implements the RepositoryManager interface for DynamoDB
type Manager struct {
	api         API
	config      *repositories.Config
	logger      *logrus.Logger
	users       *UserRepository
	trips       *TripRepository
	memberships *MembershipStore
	idCache     *IDCacheRepository
	failed      *FailedRequestRepository
}

// NewManager creates a repository manager over a DynamoDB client
func NewManager(api API, config *repositories.Config, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}

	tables := config.Tables
	attempts := config.DynamoDB.MaxCASAttempts
	return &Manager{
		api:         api,
		config:      config,
		logger:      logger,
		users:       NewUserRepository(api, tables, logger),
		trips:       NewTripRepository(api, tables, logger),
		memberships: NewMembershipStore(api, tables, attempts, logger),
		idCache:     NewIDCacheRepository(api, tables, attempts, logger),
		failed:      NewFailedRequestRepository(api, tables, logger),
	}
}

// Users returns the user repository
func (m *Manager) Users() repositories.UserRepository {
	return m.users
}

// Trips returns the trip repository
func (m *Manager) Trips() repositories.TripRepository {
	return m.trips
}

// Memberships returns the membership list store
func (m *Manager) Memberships() repositories.MembershipStore {
	return m.memberships
}

// IDCache returns the pre-generated ID cache
func (m *Manager) IDCache() repositories.IDCacheRepository {
	return m.idCache
}

// FailedRequests returns the failed request repository
func (m *Manager) FailedRequests() repositories.FailedRequestRepository {
	return m.failed
}

// Close is a no-op; the SDK client holds no connection to release
func (m *Manager) Close() error {
	return nil
}

// Health reads the cache record from the users table
func (m *Manager) Health(ctx context.Context) error {
	_, err := m.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(m.config.Tables.Users),
		Key:       m.users.keyOf(models.CacheRecordID),
	})
	if err != nil {
		return repositories.ConnectionError(err)
	}
	return nil
}
