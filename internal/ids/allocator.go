// Package ids allocates collision-free numeric identifiers for trips and users.
package ids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
	"trip-planner-api/internal/retry"
)

// DefaultMaxAttempts is how many candidates an allocator tries
const DefaultMaxAttempts = 3

// Allocator hands out identifiers that are not yet used as keys
type Allocator interface {
	Allocate(ctx context.Context) (int64, error)
}

// TimestampAllocator builds trip IDs as unix_seconds*10000 + random[0, 9999]
type TimestampAllocator struct {
	keys        repositories.KeyChecker
	random      randomid.Source
	now         func() time.Time
	maxAttempts int
	logger      *logrus.Logger
}

// NewTimestampAllocator creates a trip ID allocator
func NewTimestampAllocator(keys repositories.KeyChecker, random randomid.Source, maxAttempts int, logger *logrus.Logger) *TimestampAllocator {
	if random == nil {
		random = randomid.LocalSource{}
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &TimestampAllocator{
		keys:        keys,
		random:      random,
		now:         time.Now,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// SetClock replaces the time source
func (a *TimestampAllocator) SetClock(now func() time.Time) {
	a.now = now
}

// Allocate implements Allocator. When every attempt collides the error is
// ErrAllocationExhausted; when the last attempt failed upstream that error
// is returned as is. Storage faults abort at once.
func (a *TimestampAllocator) Allocate(ctx context.Context) (int64, error) {
	var id int64

	policy := retry.Policy{
		MaxAttempts: a.maxAttempts,
		Retryable: func(err error) bool {
			return errors.Is(err, ErrCandidateTaken) || randomid.IsUpstream(err)
		},
	}

	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		suffix, err := a.random.Fetch(ctx, 0, models.TripIDSpread-1)
		if err != nil {
			return err
		}

		candidate := a.now().Unix()*models.TripIDSpread + suffix
		taken, err := a.keys.Exists(ctx, candidate)
		if err != nil {
			return fmt.Errorf("check trip id %d: %w", candidate, err)
		}
		if taken {
			a.logger.WithFields(logrus.Fields{"candidate": candidate, "attempt": attempt}).Debug("Trip id collision")
			return ErrCandidateTaken
		}

		id = candidate
		return nil
	})
	if err == nil {
		return id, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		if errors.Is(exhausted.Last, ErrCandidateTaken) {
			return 0, fmt.Errorf("%w: %d trip id candidates collided", ErrAllocationExhausted, exhausted.Attempts)
		}
		return 0, exhausted.Last
	}
	return 0, err
}

// Allocation describes how a cached allocation was satisfied
type Allocation struct {
	ID        int64
	FromCache bool
	Warmup    StepOutcome
}

// CachedAllocator draws user IDs from the random source and falls back to
// the ID cache when direct allocation fails
type CachedAllocator struct {
	keys        repositories.KeyChecker
	random      randomid.Source
	cache       *Cache
	lowWater    int
	maxAttempts int
	logger      *logrus.Logger
}

// DefaultLowWater is the cache size below which allocation tops it up
const DefaultLowWater = 5

// NewCachedAllocator creates a user ID allocator
func NewCachedAllocator(keys repositories.KeyChecker, random randomid.Source, cache *Cache, lowWater, maxAttempts int, logger *logrus.Logger) *CachedAllocator {
	if lowWater < 0 {
		lowWater = DefaultLowWater
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedAllocator{
		keys:        keys,
		random:      random,
		cache:       cache,
		lowWater:    lowWater,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Allocate implements Allocator
func (a *CachedAllocator) Allocate(ctx context.Context) (int64, error) {
	result, err := a.AllocateDetailed(ctx)
	if err != nil {
		return 0, err
	}
	return result.ID, nil
}

// AllocateDetailed allocates a user ID and reports how it was obtained
func (a *CachedAllocator) AllocateDetailed(ctx context.Context) (*Allocation, error) {
	result := &Allocation{Warmup: a.warm(ctx)}

	policy := retry.Policy{
		MaxAttempts: a.maxAttempts,
		Retryable: func(err error) bool {
			return !randomid.IsConnection(err)
		},
	}

	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		candidate, err := a.random.Fetch(ctx, models.UserIDMin, models.UserIDMax)
		if err != nil {
			return err
		}
		taken, err := a.keys.Exists(ctx, candidate)
		if err != nil {
			return fmt.Errorf("check user id %d: %w", candidate, err)
		}
		if taken {
			return ErrCandidateTaken
		}
		result.ID = candidate
		return nil
	})
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	a.logger.WithError(err).Warn("Direct user id allocation failed, using cached id")

	id, err := a.cache.Pop(ctx)
	if err != nil {
		if repositories.IsCacheEmpty(err) {
			return nil, fmt.Errorf("%w: no user id could be generated", ErrAllocationExhausted)
		}
		return nil, fmt.Errorf("pop cached user id: %w", err)
	}

	result.ID = id
	result.FromCache = true
	return result, nil
}

// warm tops the cache up by one entry when it is below the low-water mark.
// Failures are logged and reported, never returned.
func (a *CachedAllocator) warm(ctx context.Context) StepOutcome {
	outcome := StepOutcome{Step: "replenish_id_cache"}

	length, err := a.cache.Length(ctx)
	if err == nil && length >= a.lowWater {
		outcome.Status = StepSkipped
		return outcome
	}
	if err == nil {
		_, err = a.cache.Replenish(ctx)
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to replenish user id cache")
		outcome.Status = StepFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = StepSucceeded
	return outcome
}
