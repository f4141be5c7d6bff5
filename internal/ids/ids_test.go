package ids

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/randomid"
	"trip-planner-api/internal/repositories"
	"trip-planner-api/internal/repositories/memory"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// keyFunc adapts a function to repositories.KeyChecker
type keyFunc func(ctx context.Context, id int64) (bool, error)

func (f keyFunc) Exists(ctx context.Context, id int64) (bool, error) { return f(ctx, id) }

// sequence returns the given values in order, repeating the last one
func sequence(values ...int64) randomid.SourceFunc {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, min, max int64) (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	}
}

func failing(err error, calls *int32) randomid.SourceFunc {
	return func(ctx context.Context, min, max int64) (int64, error) {
		atomic.AddInt32(calls, 1)
		return 0, err
	}
}

var (
	errFormat     = &randomid.UpstreamError{Endpoint: "test", Kind: randomid.ErrUpstreamFormat}
	errConnection = &randomid.UpstreamError{Endpoint: "test", Kind: randomid.ErrUpstreamConnection}
)

var fixedNow = time.Unix(1700000000, 0)

func TestTimestampAllocator(t *testing.T) {
	ctx := context.Background()

	t.Run("BuildsIDFromClockAndRandom", func(t *testing.T) {
		m := memory.NewManager()
		alloc := NewTimestampAllocator(m.Trips(), sequence(42), 0, quietLogger())
		alloc.SetClock(func() time.Time { return fixedNow })

		id, err := alloc.Allocate(ctx)
		require.NoError(t, err)
		assert.Equal(t, fixedNow.Unix()*10000+42, id)
	})

	t.Run("RetriesOnCollision", func(t *testing.T) {
		m := memory.NewManager()
		taken := fixedNow.Unix()*10000 + 5
		require.NoError(t, m.Trips().Create(ctx, models.NewTrip(taken, 1, 1, 2, "x", "y", "")))

		alloc := NewTimestampAllocator(m.Trips(), sequence(5, 5, 6), 0, quietLogger())
		alloc.SetClock(func() time.Time { return fixedNow })

		id, err := alloc.Allocate(ctx)
		require.NoError(t, err)
		assert.Equal(t, taken+1, id)
	})

	t.Run("ExhaustedAfterThreeAttempts", func(t *testing.T) {
		var checks int32
		always := keyFunc(func(ctx context.Context, id int64) (bool, error) {
			atomic.AddInt32(&checks, 1)
			return true, nil
		})

		_, err := NewTimestampAllocator(always, nil, 3, quietLogger()).Allocate(ctx)
		assert.ErrorIs(t, err, ErrAllocationExhausted)
		assert.Equal(t, int32(3), checks)
	})

	t.Run("UpstreamErrorPropagatedUntouched", func(t *testing.T) {
		var calls int32
		m := memory.NewManager()

		_, err := NewTimestampAllocator(m.Trips(), failing(errFormat, &calls), 3, quietLogger()).Allocate(ctx)
		assert.True(t, randomid.IsFormat(err))
		assert.NotErrorIs(t, err, ErrAllocationExhausted)
		assert.Equal(t, int32(3), calls)
	})

	t.Run("StorageFaultAborts", func(t *testing.T) {
		var checks int32
		broken := keyFunc(func(ctx context.Context, id int64) (bool, error) {
			atomic.AddInt32(&checks, 1)
			return false, repositories.ConnectionError(errors.New("throttled"))
		})

		_, err := NewTimestampAllocator(broken, nil, 3, quietLogger()).Allocate(ctx)
		assert.ErrorIs(t, err, repositories.ErrConnection)
		assert.Equal(t, int32(1), checks)
	})
}

// reserving marks a key as used the first time it is checked, standing in for
// the allocate-then-put-if-absent pair callers perform
type reserving struct {
	mu         sync.Mutex
	used       map[int64]bool
	collisions int
}

func (r *reserving) Exists(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used[id] {
		r.collisions++
		return true, nil
	}
	r.used[id] = true
	return false, nil
}

func TestTimestampAllocatorConcurrentUniqueness(t *testing.T) {
	ctx := context.Background()
	keys := &reserving{used: make(map[int64]bool)}

	// every random value is handed out twice in a row, forcing collisions
	var counter int64
	random := randomid.SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
		return atomic.AddInt64(&counter, 1) / 2, nil
	})

	alloc := NewTimestampAllocator(keys, random, 3, quietLogger())
	alloc.SetClock(func() time.Time { return fixedNow })

	const n = 20
	results := make(chan int64, n)
	failures := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := alloc.Allocate(ctx)
			if err != nil {
				failures <- err
				return
			}
			results <- id
		}()
	}
	wg.Wait()
	close(results)
	close(failures)

	// an unlucky goroutine may lose three races in a row; it must then say so
	for err := range failures {
		assert.ErrorIs(t, err, ErrAllocationExhausted)
	}

	seen := make(map[int64]bool)
	for id := range results {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.NotEmpty(t, seen)
	assert.Greater(t, keys.collisions, 0)
}

func newCachedAllocator(m *memory.Manager, random randomid.Source) *CachedAllocator {
	cache := NewCache(m.IDCache(), m.Users(), random, quietLogger())
	return NewCachedAllocator(m.Users(), random, cache, DefaultLowWater, DefaultMaxAttempts, quietLogger())
}

func fillCache(t *testing.T, m *memory.Manager, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, m.IDCache().AppendCachedID(context.Background(), id))
	}
}

func TestCachedAllocator(t *testing.T) {
	ctx := context.Background()

	t.Run("DirectAllocationWarmsCache", func(t *testing.T) {
		m := memory.NewManager()
		alloc := newCachedAllocator(m, sequence(1001, 1002))

		result, err := alloc.AllocateDetailed(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1002), result.ID)
		assert.False(t, result.FromCache)
		assert.Equal(t, StepSucceeded, result.Warmup.Status)

		cached, err := m.IDCache().CachedIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1001}, cached)
	})

	t.Run("FallsBackToCacheFront", func(t *testing.T) {
		m := memory.NewManager()
		fillCache(t, m, 11, 12, 13, 14, 15, 16)

		var calls int32
		alloc := newCachedAllocator(m, failing(errFormat, &calls))

		result, err := alloc.AllocateDetailed(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), result.ID)
		assert.True(t, result.FromCache)
		assert.Equal(t, StepSkipped, result.Warmup.Status)
		assert.Equal(t, int32(3), calls)

		cached, err := m.IDCache().CachedIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{12, 13, 14, 15, 16}, cached)
	})

	t.Run("ConnectionFailureShortCircuits", func(t *testing.T) {
		m := memory.NewManager()
		fillCache(t, m, 21, 22, 23, 24, 25)

		var calls int32
		id, err := newCachedAllocator(m, failing(errConnection, &calls)).Allocate(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(21), id)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("CollisionsFallBackToCache", func(t *testing.T) {
		m := memory.NewManager()
		fillCache(t, m, 31, 32, 33, 34, 35)
		user, err := models.NewUser(500, "taken@example.com", "pw")
		require.NoError(t, err)
		require.NoError(t, m.Users().Create(ctx, user))

		id, err := newCachedAllocator(m, sequence(500)).Allocate(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(31), id)
	})

	t.Run("EmptyCacheIsExhausted", func(t *testing.T) {
		m := memory.NewManager()
		var calls int32

		_, err := newCachedAllocator(m, failing(errFormat, &calls)).Allocate(ctx)
		assert.ErrorIs(t, err, ErrAllocationExhausted)
		assert.False(t, repositories.IsCacheEmpty(err))
		// one warm-up fetch plus three direct attempts
		assert.Equal(t, int32(4), calls)
	})

	t.Run("WarmupFailureIsSwallowed", func(t *testing.T) {
		m := memory.NewManager()
		var first atomic.Bool
		random := randomid.SourceFunc(func(ctx context.Context, min, max int64) (int64, error) {
			if first.CompareAndSwap(false, true) {
				return 0, errFormat
			}
			return 777, nil
		})

		result, err := newCachedAllocator(m, random).AllocateDetailed(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(777), result.ID)
		assert.Equal(t, StepFailed, result.Warmup.Status)
		assert.True(t, randomid.IsFormat(result.Warmup.Err))
	})
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	t.Run("ReplenishRejectsTakenID", func(t *testing.T) {
		m := memory.NewManager()
		user, err := models.NewUser(9, "nine@example.com", "pw")
		require.NoError(t, err)
		require.NoError(t, m.Users().Create(ctx, user))

		_, err = NewCache(m.IDCache(), m.Users(), sequence(9), quietLogger()).Replenish(ctx)
		assert.ErrorIs(t, err, ErrCandidateTaken)
	})

	t.Run("ReplenishRejectsDuplicate", func(t *testing.T) {
		m := memory.NewManager()
		cache := NewCache(m.IDCache(), m.Users(), sequence(8), quietLogger())

		_, err := cache.Replenish(ctx)
		require.NoError(t, err)
		_, err = cache.Replenish(ctx)
		assert.True(t, repositories.IsConditionFailed(err))
	})

	t.Run("FillReportsFailures", func(t *testing.T) {
		m := memory.NewManager()
		cache := NewCache(m.IDCache(), m.Users(), sequence(1, 2, 2), quietLogger())

		length, err := cache.Fill(ctx, 3)
		assert.Equal(t, 2, length)
		assert.True(t, repositories.IsConditionFailed(err))
	})

	t.Run("PopOrder", func(t *testing.T) {
		m := memory.NewManager()
		fillCache(t, m, 4, 5)
		cache := NewCache(m.IDCache(), m.Users(), nil, quietLogger())

		id, err := cache.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), id)

		length, err := cache.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, length)
	})
}
