package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      4,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      100 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func retryAlways(error) ErrorClassification {
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

func retryNever(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	err := executor.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryAlways)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecuteStopsAtAttemptBudget(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	err := executor.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("transient")
	}, retryAlways)

	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecuteDoesNotRetryHardErrors(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	err := executor.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("validation failed")
	}, retryNever)

	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExecuteRespectsCancelledContext(t *testing.T) {
	executor := NewExecutor(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := executor.Execute(ctx, "op", func(context.Context) error {
		calls++
		return nil
	}, retryAlways)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled context must not invoke the callback")
	}
}

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	executor := NewExecutor(fastConfig())
	fail := func(context.Context) error { return errors.New("down") }

	// Each Execute records one breaker request; retries happen inside it.
	for i := 0; i < 4; i++ {
		_ = executor.Execute(context.Background(), "flaky", fail, retryAlways)
	}

	err := executor.Execute(context.Background(), "flaky", fail, retryAlways)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestBreakerIsPerOperation(t *testing.T) {
	executor := NewExecutor(fastConfig())
	fail := func(context.Context) error { return errors.New("down") }

	for i := 0; i < 5; i++ {
		_ = executor.Execute(context.Background(), "broken", fail, retryAlways)
	}

	err := executor.Execute(context.Background(), "healthy", func(context.Context) error {
		return nil
	}, retryAlways)
	if err != nil {
		t.Fatalf("unrelated operation affected by open circuit: %v", err)
	}
}

func TestUnrecordedFailuresDoNotTripBreaker(t *testing.T) {
	executor := NewExecutor(fastConfig())
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}

	for i := 0; i < 10; i++ {
		_ = executor.Execute(context.Background(), "op", func(context.Context) error {
			return errors.New("rejected")
		}, classifier)
	}

	err := executor.Execute(context.Background(), "op", func(context.Context) error {
		return nil
	}, classifier)
	if err != nil {
		t.Fatalf("breaker tripped on unrecorded failures: %v", err)
	}
}
