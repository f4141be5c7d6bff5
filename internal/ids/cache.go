package ids

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
)

// Cache holds pre-generated user IDs that were free when they were added
type Cache struct {
	repo   repositories.IDCacheRepository
	users  repositories.KeyChecker
	random randomid.Source
	logger *logrus.Logger
}

// NewCache creates a cache over the given repository
func NewCache(repo repositories.IDCacheRepository, users repositories.KeyChecker, random randomid.Source, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
	}
	return &Cache{repo: repo, users: users, random: random, logger: logger}
}

// Length returns the number of cached IDs
func (c *Cache) Length(ctx context.Context) (int, error) {
	cached, err := c.repo.CachedIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(cached), nil
}

// Replenish fetches one random ID, checks it is not a user key and appends
// it. Fails with ErrCandidateTaken if a user has the ID and with
// repositories.ErrConditionFailed if it is already cached.
func (c *Cache) Replenish(ctx context.Context) (int64, error) {
	candidate, err := c.random.Fetch(ctx, models.UserIDMin, models.UserIDMax)
	if err != nil {
		return 0, err
	}

	taken, err := c.users.Exists(ctx, candidate)
	if err != nil {
		return 0, fmt.Errorf("check user id %d: %w", candidate, err)
	}
	if taken {
		return 0, fmt.Errorf("%w: %d", ErrCandidateTaken, candidate)
	}

	if err := c.repo.AppendCachedID(ctx, candidate); err != nil {
		return 0, err
	}

	c.logger.WithField("cached_id", candidate).Debug("User id cached")
	return candidate, nil
}

// Fill replenishes until the cache holds target entries, making at most one
// attempt per missing entry. It returns the resulting length and every
// failure joined together.
func (c *Cache) Fill(ctx context.Context, target int) (int, error) {
	length, err := c.Length(ctx)
	if err != nil {
		return 0, err
	}

	var failures []error
	for missing := target - length; missing > 0; missing-- {
		if _, err := c.Replenish(ctx); err != nil {
			failures = append(failures, err)
			continue
		}
		length++
	}
	return length, errors.Join(failures...)
}

// Pop removes and returns the front entry
func (c *Cache) Pop(ctx context.Context) (int64, error) {
	return c.repo.PopCachedID(ctx)
}
