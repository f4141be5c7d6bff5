// Package memory is an in-process implementation of the repositories,
// used by tests and by local runs with STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// Store holds every table in maps guarded by a single lock, so each
// repository call is atomic with respect to the others.
type Store struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	trips    map[int64]*models.Trip
	cached   []int64
	hasCache bool
	failed   map[string]*models.FailedRequest
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:  make(map[int64]*models.User),
		trips:  make(map[int64]*models.Trip),
		failed: make(map[string]*models.FailedRequest),
	}
}

// Manager implements repositories.RepositoryManager over a Store
type Manager struct {
	store *Store
}

// NewManager creates a repository manager backed by a fresh store
func NewManager() *Manager {
	return &Manager{store: NewStore()}
}

func (m *Manager) Users() repositories.UserRepository                   { return &userRepo{m.store} }
func (m *Manager) Trips() repositories.TripRepository                   { return &tripRepo{m.store} }
func (m *Manager) Memberships() repositories.MembershipStore            { return &membershipStore{m.store} }
func (m *Manager) IDCache() repositories.IDCacheRepository              { return &idCache{m.store} }
func (m *Manager) FailedRequests() repositories.FailedRequestRepository { return &failedRepo{m.store} }

// Close is a no-op
func (m *Manager) Close() error { return nil }

// Health always succeeds
func (m *Manager) Health(ctx context.Context) error { return ctx.Err() }

func copyUser(u *models.User) *models.User {
	c := *u
	c.AwaitingApproval = append([]int64{}, u.AwaitingApproval...)
	c.Approved = append([]int64{}, u.Approved...)
	return &c
}

func copyTrip(t *models.Trip) *models.Trip {
	c := *t
	c.AwaitingApproval = append([]int64{}, t.AwaitingApproval...)
	c.Approved = append([]int64{}, t.Approved...)
	return &c
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.UserID]; ok || user.UserID == models.CacheRecordID {
		return repositories.DuplicateError(string(repositories.EntityUser), "user_id", idString(user.UserID))
	}
	r.s.users[user.UserID] = copyUser(user)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repositories.NotFoundError(string(repositories.EntityUser), idString(id))
	}
	return copyUser(user), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, repositories.NotFoundError(string(repositories.EntityUser), email)
}

func (r *userRepo) Exists(ctx context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if id == models.CacheRecordID {
		return r.s.hasCache, nil
	}
	_, ok := r.s.users[id]
	return ok, nil
}

type tripRepo struct{ s *Store }

func (r *tripRepo) Create(ctx context.Context, trip *models.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[trip.TripID]; ok {
		return repositories.DuplicateError(string(repositories.EntityTrip), "trip_id", idString(trip.TripID))
	}
	r.s.trips[trip.TripID] = copyTrip(trip)
	return nil
}

func (r *tripRepo) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	trip, ok := r.s.trips[id]
	if !ok {
		return nil, repositories.NotFoundError(string(repositories.EntityTrip), idString(id))
	}
	return copyTrip(trip), nil
}

func (r *tripRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[id]; !ok {
		return repositories.NotFoundError(string(repositories.EntityTrip), idString(id))
	}
	delete(r.s.trips, id)
	return nil
}

func (r *tripRepo) Exists(ctx context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.trips[id]
	return ok, nil
}

func (r *tripRepo) ListByLocation(ctx context.Context, location string) ([]*models.Trip, error) {
	return r.filter(func(t *models.Trip) bool { return t.Location == location }), nil
}

func (r *tripRepo) ListByAdmin(ctx context.Context, adminID int64) ([]*models.Trip, error) {
	return r.filter(func(t *models.Trip) bool { return t.AdminID == adminID }), nil
}

func (r *tripRepo) List(ctx context.Context) ([]*models.Trip, error) {
	return r.filter(func(*models.Trip) bool { return true }), nil
}

func (r *tripRepo) filter(keep func(*models.Trip) bool) []*models.Trip {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var trips []*models.Trip
	for _, trip := range r.s.trips {
		if keep(trip) {
			trips = append(trips, copyTrip(trip))
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].TripID < trips[j].TripID })
	return trips
}

type failedRepo struct{ s *Store }

func (r *failedRepo) Create(ctx context.Context, req *models.FailedRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.failed[req.RequestID]; ok {
		return repositories.DuplicateError(string(repositories.EntityFailedRequest), "request_id", req.RequestID)
	}
	c := *req
	r.s.failed[req.RequestID] = &c
	return nil
}

func (r *failedRepo) GetByID(ctx context.Context, requestID string) (*models.FailedRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.failed[requestID]
	if !ok {
		return nil, repositories.NotFoundError(string(repositories.EntityFailedRequest), requestID)
	}
	c := *req
	return &c, nil
}
