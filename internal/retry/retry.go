// Package retry runs an operation under an exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = time.Second
	DefaultMultiplier  = 2.0
)

// Policy describes how many times an operation is attempted and how long to
// wait between attempts. The wait before attempt n+1 is BaseDelay*Multiplier^(n-1).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// Retryable reports whether an error is worth another attempt. A nil
	// predicate makes every error permanent.
	Retryable func(error) bool
	// Timer overrides the wall-clock timer, mainly for tests.
	Timer backoff.Timer
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns 4 attempts, 1s base delay, doubling.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
		Retryable:   retryable,
	}
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	ceiling := float64(p.BaseDelay)
	for i := 1; i < p.MaxAttempts; i++ {
		ceiling *= p.Multiplier
	}
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.BaseDelay),
		backoff.WithMultiplier(p.Multiplier),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(time.Duration(ceiling)),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. It returns the number of attempts made.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) (int, error) {
	p = p.normalize()
	attempts := 0
	var lastErr error

	operation := func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Retryable != nil && p.Retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempts, err, wait)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), notify, p.Timer)
	if err == nil {
		return attempts, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return attempts, err
	}
	if lastErr != nil && p.Retryable != nil && p.Retryable(lastErr) {
		return attempts, &ExhaustedError{Attempts: attempts, Err: lastErr}
	}
	return attempts, err
}
