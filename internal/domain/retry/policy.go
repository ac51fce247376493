// Package retry defines retry policies and backoff strategies.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy defines a retry strategy.
type Policy struct {
	MaxRetries      int             `json:"max_retries"`
	InitialDelay    time.Duration   `json:"initial_delay"`
	MaxDelay        time.Duration   `json:"max_delay"`
	BackoffStrategy BackoffType     `json:"backoff_strategy"`
	Delays          []time.Duration `json:"delays,omitempty"` // used by BackoffSchedule
	JitterFactor    float64         `json:"jitter_factor"`    // 0.0-1.0
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"       // Same delay each time
	BackoffLinear      BackoffType = "linear"      // Delay increases linearly
	BackoffExponential BackoffType = "exponential" // Delay doubles each time
	BackoffSchedule    BackoffType = "schedule"    // Explicit per-attempt delays
)

// DefaultPolicy returns the policy used for in-process webhook handlers.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.25,
	}
}

// DeliveryPolicy mirrors the avatar platform's webhook delivery schedule:
// one immediate attempt, then retries after 1s, 5s and 30s.
func DeliveryPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		BackoffStrategy: BackoffSchedule,
		Delays:          []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		MaxDelay:        30 * time.Second,
	}
}

// NoRetryPolicy returns a policy that never retries.
func NoRetryPolicy() Policy {
	return Policy{}
}

// CalculateDelay calculates the delay before the given retry attempt (1-based).
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration

	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	case BackoffSchedule:
		if len(p.Delays) == 0 {
			return 0
		}
		idx := attempt - 1
		if idx >= len(p.Delays) {
			idx = len(p.Delays) - 1
		}
		delay = p.Delays[idx]
	default:
		delay = p.InitialDelay
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1) // -jitter to +jitter
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// ShouldRetry reports whether another attempt is allowed after err on the
// given zero-based attempt.
func (p *Policy) ShouldRetry(attempt int, err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	return attempt < p.MaxRetries
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Executor provides retry execution functionality.
type Executor struct {
	policy  Policy
	onRetry func(attempt int, delay time.Duration, err error)
}

// NewExecutor creates a new retry executor with the given policy.
func NewExecutor(policy Policy) *Executor {
	return &Executor{policy: policy}
}

// OnRetry registers a callback invoked before each wait.
func (e *Executor) OnRetry(fn func(attempt int, delay time.Duration, err error)) *Executor {
	e.onRetry = fn
	return e
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context, attempt int) error

// Execute runs fn until it succeeds, returns a permanent error, the policy
// is exhausted, or ctx is done.
func (e *Executor) Execute(ctx context.Context, fn RetryableFunc) error {
	_, err := ExecuteWithResult(ctx, e.policy, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	}, e.onRetry)
	return err
}

// ExecuteWithResult runs the function with retries and returns its result.
func ExecuteWithResult[T any](ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (T, error), onRetry ...func(attempt int, delay time.Duration, err error)) (T, error) {
	var zero T
	var lastErr error
	var result T

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		r, err := fn(ctx, attempt)
		if err == nil {
			return r, nil
		}

		result = r
		lastErr = err

		if !policy.ShouldRetry(attempt, err) {
			break
		}

		delay := policy.CalculateDelay(attempt + 1)
		for _, cb := range onRetry {
			if cb != nil {
				cb(attempt+1, delay, err)
			}
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, lastErr
}
