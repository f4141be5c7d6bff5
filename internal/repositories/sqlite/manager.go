package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/database"
	"trip-planner-api/internal/repositories"
)

// Manager implements the RepositoryManager interface for SQLite
type Manager struct {
	conn        *database.ConnectionManager
	db          *sqlx.DB
	config      *repositories.Config
	logger      *logrus.Logger
	users       *UserRepository
	trips       *TripRepository
	memberships *MembershipStore
	idCache     *IDCacheRepository
	failed      *FailedRequestRepository
}

// Open connects to the configured database file, migrating it when
// AutoMigrate is set, and returns a manager that owns the connection
func Open(ctx context.Context, config *repositories.Config, logger *logrus.Logger) (*Manager, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn := database.NewConnectionManager(&config.SQLite, logger)
	if err := conn.Connect(ctx); err != nil {
		return nil, repositories.ConnectionError(err)
	}

	manager := NewManager(conn.GetDB(), config, logger)
	manager.conn = conn
	return manager, nil
}

// NewManager creates a repository manager with an existing database connection
func NewManager(db *sqlx.DB, config *repositories.Config, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}

	return &Manager{
		db:          db,
		config:      config,
		logger:      logger,
		users:       NewUserRepository(db, logger),
		trips:       NewTripRepository(db, logger),
		memberships: NewMembershipStore(db, logger),
		idCache:     NewIDCacheRepository(db, logger),
		failed:      NewFailedRequestRepository(db, logger),
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

// Close closes all repository connections
func (m *Manager) Close() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Health checks the health of the repository connections
func (m *Manager) Health(ctx context.Context) error {
	if m.db == nil {
		return repositories.ConnectionError(repositories.ErrConnection)
	}

	if err := m.db.PingContext(ctx); err != nil {
		return repositories.ConnectionError(err)
	}

	var result int
	if err := m.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return repositories.ConnectionError(err)
	}

	if result != 1 {
		return repositories.ConnectionError(fmt.Errorf("unexpected health check result %d", result))
	}

	return nil
}
