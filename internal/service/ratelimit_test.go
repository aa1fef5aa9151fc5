package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_TryAcquire(t *testing.T) {
	r := NewRateLimiter(RateLimiterConfig{MaxTokens: 2, RefillRate: 0.001})

	if !r.TryAcquire() || !r.TryAcquire() {
		t.Fatalf("expected initial burst of 2")
	}
	if r.TryAcquire() {
		t.Fatalf("expected empty bucket to reject")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	r := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 50})

	if !r.TryAcquire() {
		t.Fatalf("expected initial token")
	}
	if r.TryAcquire() {
		t.Fatalf("expected bucket drained")
	}

	time.Sleep(40 * time.Millisecond)
	if !r.TryAcquire() {
		t.Fatalf("expected refill after waiting")
	}
}

func TestRateLimiter_AcquireBlocksThenSucceeds(t *testing.T) {
	r := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 100})
	_ = r.TryAcquire()

	start := time.Now()
	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("acquire took too long: %s", elapsed)
	}
}

func TestRateLimiter_AcquireHonorsContext(t *testing.T) {
	r := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0.001})
	_ = r.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRateLimiter_CapsAtMax(t *testing.T) {
	r := NewRateLimiter(RateLimiterConfig{MaxTokens: 2, RefillRate: 1000})
	time.Sleep(10 * time.Millisecond)

	if got := r.Available(); got > 2 {
		t.Fatalf("expected bucket capped at 2, got %f", got)
	}
}
