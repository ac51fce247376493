package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"avatar-bridge/internal/domain/retry"
)

func TestPolicy_CalculateDelay(t *testing.T) {
	tests := []struct {
		name        string
		policy      retry.Policy
		attempt     int
		expectedMin time.Duration
		expectedMax time.Duration
	}{
		{
			name:        "fixed backoff - attempt 5",
			policy:      retry.Policy{BackoffStrategy: retry.BackoffFixed, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			attempt:     5,
			expectedMin: 100 * time.Millisecond,
			expectedMax: 100 * time.Millisecond,
		},
		{
			name:        "linear backoff - attempt 3",
			policy:      retry.Policy{BackoffStrategy: retry.BackoffLinear, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			attempt:     3,
			expectedMin: 300 * time.Millisecond,
			expectedMax: 300 * time.Millisecond,
		},
		{
			name:        "exponential backoff - attempt 3",
			policy:      retry.Policy{BackoffStrategy: retry.BackoffExponential, InitialDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second},
			attempt:     3,
			expectedMin: 400 * time.Millisecond,
			expectedMax: 400 * time.Millisecond,
		},
		{
			name:        "respects max delay",
			policy:      retry.Policy{BackoffStrategy: retry.BackoffExponential, InitialDelay: 100 * time.Millisecond, MaxDelay: 200 * time.Millisecond},
			attempt:     10,
			expectedMin: 200 * time.Millisecond,
			expectedMax: 200 * time.Millisecond,
		},
		{
			name:        "jitter stays in band",
			policy:      retry.Policy{BackoffStrategy: retry.BackoffFixed, InitialDelay: 100 * time.Millisecond, JitterFactor: 0.5},
			attempt:     1,
			expectedMin: 50 * time.Millisecond,
			expectedMax: 150 * time.Millisecond,
		},
		{
			name:        "attempt zero has no delay",
			policy:      retry.DefaultPolicy(),
			attempt:     0,
			expectedMin: 0,
			expectedMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.CalculateDelay(tt.attempt)
			if got < tt.expectedMin || got > tt.expectedMax {
				t.Errorf("Policy.CalculateDelay() = %v, want between %v and %v", got, tt.expectedMin, tt.expectedMax)
			}
		})
	}
}

func TestDeliveryPolicy_Schedule(t *testing.T) {
	policy := retry.DeliveryPolicy()
	want := []time.Duration{time.Second, 5 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		if got := policy.CalculateDelay(i + 1); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
	}
	if policy.MaxRetries != 3 {
		t.Errorf("DeliveryPolicy().MaxRetries = %d, want 3", policy.MaxRetries)
	}
}

func TestPolicy_ShouldRetry(t *testing.T) {
	policy := retry.Policy{MaxRetries: 3}
	errTransient := errors.New("transient")

	tests := []struct {
		name     string
		attempt  int
		err      error
		expected bool
	}{
		{name: "transient within budget", attempt: 1, err: errTransient, expected: true},
		{name: "budget exhausted", attempt: 3, err: errTransient, expected: false},
		{name: "permanent error", attempt: 0, err: retry.Permanent(errTransient), expected: false},
		{name: "nil error", attempt: 0, err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRetry(tt.attempt, tt.err); got != tt.expected {
				t.Errorf("Policy.ShouldRetry() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExecutor_Execute(t *testing.T) {
	fast := retry.Policy{MaxRetries: 3, BackoffStrategy: retry.BackoffFixed, InitialDelay: time.Millisecond}

	t.Run("succeeds on first attempt", func(t *testing.T) {
		callCount := 0
		err := retry.NewExecutor(fast).Execute(context.Background(), func(ctx context.Context, attempt int) error {
			callCount++
			return nil
		})
		if err != nil || callCount != 1 {
			t.Errorf("err=%v calls=%d, want nil and 1", err, callCount)
		}
	})

	t.Run("retries until success and reports retries", func(t *testing.T) {
		callCount := 0
		var retried []int
		err := retry.NewExecutor(fast).
			OnRetry(func(attempt int, delay time.Duration, err error) { retried = append(retried, attempt) }).
			Execute(context.Background(), func(ctx context.Context, attempt int) error {
				callCount++
				if callCount < 3 {
					return errors.New("retryable")
				}
				return nil
			})
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if callCount != 3 {
			t.Errorf("Expected 3 calls, got %d", callCount)
		}
		if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
			t.Errorf("unexpected retry callbacks %v", retried)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		callCount := 0
		err := retry.NewExecutor(fast).Execute(context.Background(), func(ctx context.Context, attempt int) error {
			callCount++
			return errors.New("always")
		})
		if err == nil || callCount != 4 {
			t.Errorf("err=%v calls=%d, want error and 4 calls", err, callCount)
		}
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		callCount := 0
		err := retry.NewExecutor(fast).Execute(context.Background(), func(ctx context.Context, attempt int) error {
			callCount++
			return retry.Permanent(errors.New("bad request"))
		})
		if !retry.IsPermanent(err) || callCount != 1 {
			t.Errorf("err=%v calls=%d, want permanent and 1 call", err, callCount)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := retry.NewExecutor(fast).Execute(ctx, func(ctx context.Context, attempt int) error {
			return errors.New("should not reach here")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestExecuteWithResult(t *testing.T) {
	policy := retry.Policy{MaxRetries: 3, BackoffStrategy: retry.BackoffFixed, InitialDelay: time.Millisecond}

	callCount := 0
	result, err := retry.ExecuteWithResult(context.Background(), policy, func(ctx context.Context, attempt int) (int, error) {
		callCount++
		if callCount < 2 {
			return 0, errors.New("retryable")
		}
		return 42, nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != 42 {
		t.Errorf("Expected 42, got %v", result)
	}
}
