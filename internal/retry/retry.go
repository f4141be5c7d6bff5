// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrExhausted is matched by the error returned when every attempt failed
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy configures retry behavior
type Policy struct {
	MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
	JitterEnabled bool          `json:"jitter_enabled" yaml:"jitter_enabled"`

	// Retryable decides whether a failed attempt may be followed by another.
	// A nil predicate retries every error.
	Retryable func(error) bool `json:"-" yaml:"-"`
}

// DefaultPolicy returns three immediate attempts, retrying every error
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		BackoffFactor: 2.0,
	}
}

// Operation is one attempt. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// ExhaustedError is returned when all attempts failed with retryable errors
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last attempt's error
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Is matches ErrExhausted
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Do executes op until it succeeds, returns a non-retryable error, or runs
// out of attempts. A non-retryable error is returned as is; running out
// yields an *ExhaustedError wrapping the last error.
func Do(ctx context.Context, policy Policy, op Operation) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		if delay := policy.delay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return &ExhaustedError{Attempts: policy.MaxAttempts, Last: lastErr}
}

// delay calculates the wait before the next attempt
func (p Policy) delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}

	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	// Exponential backoff: initial_delay * factor^(attempt-1)
	delay := float64(p.InitialDelay) * math.Pow(factor, float64(attempt-1))

	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.JitterEnabled {
		delay += rand.Float64() * 0.1 * delay // up to 10%
	}

	return time.Duration(delay)
}
