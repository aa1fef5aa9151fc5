package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docpanel-ai/docpanel/internal/core"
)

func fastPolicy(attempts int) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return core.ErrEvaluation("T", "transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_NonRetryableAbortsImmediately(t *testing.T) {
	calls := 0
	permanent := core.ErrValidation("V", "bad input")
	err := fastPolicy(5).Execute(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestRetry_Exhaustion(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Execute(context.Background(), func(context.Context) error {
		calls++
		return core.ErrEvaluation("T", "always")
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if !IsRetryExhausted(err) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 3 {
		t.Fatalf("unexpected exhaustion detail: %v", err)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastPolicy(3).Execute(ctx, func(context.Context) error {
		t.Fatalf("function should not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_NotifyCalledPerRetry(t *testing.T) {
	var notified []int
	_ = fastPolicy(3).ExecuteWithNotify(context.Background(), func(context.Context) error {
		return core.ErrEvaluation("T", "always")
	}, func(attempt int, _ error, _ time.Duration) {
		notified = append(notified, attempt)
	})

	// Two sleeps for three attempts.
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Fatalf("unexpected notifications %v", notified)
	}
}

func TestCalculateDelay_ExponentialAndCapped(t *testing.T) {
	p := &RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}

	if d := p.CalculateDelayNoJitter(1); d != time.Second {
		t.Fatalf("attempt 1: got %s", d)
	}
	if d := p.CalculateDelayNoJitter(2); d != 2*time.Second {
		t.Fatalf("attempt 2: got %s", d)
	}
	if d := p.CalculateDelayNoJitter(5); d != 5*time.Second {
		t.Fatalf("attempt 5 should cap at max delay, got %s", d)
	}
}

func TestCalculateDelay_JitterStaysInBounds(t *testing.T) {
	p := &RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		JitterFactor: 0.2,
		Multiplier:   2.0,
	}
	for i := 0; i < 100; i++ {
		d := p.CalculateDelay(1)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jittered delay %s outside [0.8s, 1.2s]", d)
		}
	}
}
