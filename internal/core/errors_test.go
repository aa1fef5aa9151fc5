package core

import (
	"errors"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := ErrEvaluation("CODE", "message").WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if !ErrEvaluation("C", "m").Retryable {
		t.Fatalf("evaluation should be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if !ErrRateLimit("m").Retryable {
		t.Fatalf("rate limit should be retryable")
	}
	if ErrState("C", "m").Retryable {
		t.Fatalf("state should not be retryable")
	}
	if ErrIngestion("READ_FAILED", "m").Retryable {
		t.Fatalf("ingestion should not be retryable")
	}
	if ErrSecondPassBudget("m").Retryable {
		t.Fatalf("second-pass budget should not be retryable")
	}
}

func TestWithRetryableOverride(t *testing.T) {
	if ErrEvaluation("C", "m").WithRetryable(false).Retryable {
		t.Fatalf("expected override to non-retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrEvaluation("X", "m")) {
		t.Fatalf("expected retryable error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected non-domain error to be non-retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrRateLimit("m")) != ErrCatRateLimit {
		t.Fatalf("expected rate_limit category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrNotFound(CodeSessionNotFound, "m"), ErrCatNotFound) {
		t.Fatalf("expected category match")
	}
}
