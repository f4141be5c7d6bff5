package lambda

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxIdle is how long a warm resource may sit unused before it is rebuilt
const DefaultMaxIdle = 15 * time.Minute

// Closer is a resource held across warm invocations
type Closer interface {
	Close() error
}

// ConnectionManager keeps a resource alive between invocations of a warm
// Lambda container. The factory runs on first use; a failed initialization
// is retried on the next invocation instead of being cached.
type ConnectionManager[T Closer] struct {
	factory     func(ctx context.Context) (T, error)
	value       T
	lastUsed    time.Time
	initialized bool
	mu          sync.Mutex
}

// NewConnectionManager creates a connection manager around a factory
func NewConnectionManager[T Closer](factory func(ctx context.Context) (T, error)) *ConnectionManager[T] {
	return &ConnectionManager[T]{factory: factory}
}

// Get returns the resource, initializing it if necessary
func (cm *ConnectionManager[T]) Get(ctx context.Context) (T, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.initialized {
		value, err := cm.factory(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		cm.value = value
		cm.initialized = true
	}

	cm.lastUsed = time.Now()
	return cm.value, nil
}

// IsHealthy reports whether the resource exists and was used within maxIdle
func (cm *ConnectionManager[T]) IsHealthy(maxIdle time.Duration) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.initialized {
		return false
	}
	return time.Since(cm.lastUsed) < maxIdle
}

// Cleanup closes the resource; the next Get initializes a new one
func (cm *ConnectionManager[T]) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.initialized {
		return nil
	}

	err := cm.value.Close()
	var zero T
	cm.value = zero
	cm.initialized = false
	return err
}

// Refresh closes the resource once it has been idle for maxIdle, so the
// next Get builds a new one
func (cm *ConnectionManager[T]) Refresh(maxIdle time.Duration) error {
	if cm.IsHealthy(maxIdle) {
		return nil
	}
	return cm.Cleanup()
}
