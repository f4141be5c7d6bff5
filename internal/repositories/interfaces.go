package repositories

import (
	"context"
	"strconv"

	"trip-planner-api/internal/models"
)

// Entity names a table-backed record kind
type Entity string

const (
	EntityUser          Entity = "user"
	EntityTrip          Entity = "trip"
	EntityIDCache       Entity = "id_cache"
	EntityFailedRequest Entity = "failed_request"
)

// ListRef identifies one membership list on one record
type ListRef struct {
	Entity Entity
	ID     int64
	List   models.MembershipList
}

// String renders the reference for logs and error messages
func (r ListRef) String() string {
	return string(r.Entity) + "/" + strconv.FormatInt(r.ID, 10) + "." + string(r.List)
}

// ListAppend is one item of a transactional multi-record append
type ListAppend struct {
	Ref   ListRef
	Value int64
}

// KeyChecker reports whether a key is already used
type KeyChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// UserRepository defines operations on the users table
type UserRepository interface {
	KeyChecker

	// Create stores a new user. Fails with ErrDuplicateEntry if the ID is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByEmail retrieves a user through the email index
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// TripRepository defines operations on the trips table
type TripRepository interface {
	KeyChecker

	// Create stores a new trip. Fails with ErrDuplicateEntry if the ID is taken.
	Create(ctx context.Context, trip *models.Trip) error

	// GetByID retrieves a trip by ID
	GetByID(ctx context.Context, id int64) (*models.Trip, error)

	// Delete removes a trip record
	Delete(ctx context.Context, id int64) error

	// ListByLocation queries the location index
	ListByLocation(ctx context.Context, location string) ([]*models.Trip, error)

	// ListByAdmin queries the admin index
	ListByAdmin(ctx context.Context, adminID int64) ([]*models.Trip, error)

	// List scans every trip
	List(ctx context.Context) ([]*models.Trip, error)
}

// MembershipStore edits the membership lists carried by users and trips.
// Every call is atomic with respect to concurrent callers.
type MembershipStore interface {
	// ReadList returns the current contents of a list
	ReadList(ctx context.Context, ref ListRef) ([]int64, error)

	// RemoveFromList removes the first occurrence of value without reordering
	// the rest. Fails with ErrValueAbsent if value is not in the list and with
	// ErrNotFound if the record does not exist.
	RemoveFromList(ctx context.Context, ref ListRef, value int64) error

	// AppendAll applies every append or none of them. Each item requires its
	// record to exist and its value to be absent from both membership lists
	// of that record; otherwise the whole call fails with ErrConditionFailed.
	AppendAll(ctx context.Context, appends ...ListAppend) error
}

// IDCacheRepository manages the list of pre-generated user IDs kept on the
// users-table record keyed by models.CacheRecordID
type IDCacheRepository interface {
	// CachedIDs returns the cached IDs, empty when the record does not exist yet
	CachedIDs(ctx context.Context) ([]int64, error)

	// AppendCachedID adds id to the end of the cache, creating the record on
	// first use. Fails with ErrConditionFailed if id is already cached.
	AppendCachedID(ctx context.Context, id int64) error

	// PopCachedID atomically removes and returns the front element.
	// Fails with ErrCacheEmpty when there is nothing to pop.
	PopCachedID(ctx context.Context) (int64, error)
}

// FailedRequestRepository stores requests that ended in a server-side failure
type FailedRequestRepository interface {
	Create(ctx context.Context, req *models.FailedRequest) error
	GetByID(ctx context.Context, requestID string) (*models.FailedRequest, error)
}

// RepositoryManager gives access to every repository of one store
type RepositoryManager interface {
	Users() UserRepository
	Trips() TripRepository
	Memberships() MembershipStore
	IDCache() IDCacheRepository
	FailedRequests() FailedRequestRepository

	// Close closes all repository connections
	Close() error

	// Health checks the health of the store
	Health(ctx context.Context) error
}
