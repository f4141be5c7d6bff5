package memory

import (
	"context"
	"fmt"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

type membershipStore struct{ s *Store }

// list returns a pointer to the referenced slice. Caller holds the lock.
func (m *membershipStore) list(ref repositories.ListRef) (*[]int64, error) {
	switch ref.Entity {
	case repositories.EntityUser:
		user, ok := m.s.users[ref.ID]
		if !ok {
			return nil, repositories.NotFoundError(string(ref.Entity), idString(ref.ID))
		}
		if ref.List == models.ListApproved {
			return &user.Approved, nil
		}
		return &user.AwaitingApproval, nil
	case repositories.EntityTrip:
		trip, ok := m.s.trips[ref.ID]
		if !ok {
			return nil, repositories.NotFoundError(string(ref.Entity), idString(ref.ID))
		}
		if ref.List == models.ListApproved {
			return &trip.Approved, nil
		}
		return &trip.AwaitingApproval, nil
	default:
		return nil, repositories.NewRepositoryError("list", string(ref.Entity), idString(ref.ID),
			fmt.Errorf("%w: no membership lists on %s", repositories.ErrUnsupported, ref.Entity))
	}
}

func (m *membershipStore) ReadList(ctx context.Context, ref repositories.ListRef) ([]int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	list, err := m.list(ref)
	if err != nil {
		return nil, err
	}
	return append([]int64{}, (*list)...), nil
}

func (m *membershipStore) RemoveFromList(ctx context.Context, ref repositories.ListRef, value int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	list, err := m.list(ref)
	if err != nil {
		return err
	}
	i := models.IndexOf(*list, value)
	if i < 0 {
		return repositories.ValueAbsentError(string(ref.Entity), idString(ref.ID), string(ref.List), value)
	}
	*list = append((*list)[:i:i], (*list)[i+1:]...)
	return nil
}

func (m *membershipStore) AppendAll(ctx context.Context, appends ...repositories.ListAppend) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	// check every condition before touching anything
	lists := make([]*[]int64, len(appends))
	for i, a := range appends {
		list, err := m.list(a.Ref)
		if err != nil {
			if repositories.IsNotFound(err) {
				return repositories.ConditionError("append", string(a.Ref.Entity), idString(a.Ref.ID))
			}
			return err
		}
		other := a.Ref
		other.List = otherList(a.Ref.List)
		otherValues, _ := m.list(other)
		if models.IndexOf(*list, a.Value) >= 0 || models.IndexOf(*otherValues, a.Value) >= 0 {
			return repositories.ConditionError("append", string(a.Ref.Entity), idString(a.Ref.ID))
		}
		lists[i] = list
	}

	for i, a := range appends {
		*lists[i] = append(*lists[i], a.Value)
	}
	return nil
}

func otherList(list models.MembershipList) models.MembershipList {
	if list == models.ListApproved {
		return models.ListAwaitingApproval
	}
	return models.ListApproved
}

type idCache struct{ s *Store }

func (c *idCache) CachedIDs(ctx context.Context) ([]int64, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	return append([]int64{}, c.s.cached...), nil
}

func (c *idCache) AppendCachedID(ctx context.Context, id int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if models.IndexOf(c.s.cached, id) >= 0 {
		return repositories.ConditionError("append", string(repositories.EntityIDCache), idString(models.CacheRecordID))
	}
	c.s.cached = append(c.s.cached, id)
	c.s.hasCache = true
	return nil
}

func (c *idCache) PopCachedID(ctx context.Context) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if len(c.s.cached) == 0 {
		return 0, repositories.NewRepositoryError("pop", string(repositories.EntityIDCache), idString(models.CacheRecordID), repositories.ErrCacheEmpty)
	}
	id := c.s.cached[0]
	c.s.cached = append([]int64{}, c.s.cached[1:]...)
	return id, nil
}
