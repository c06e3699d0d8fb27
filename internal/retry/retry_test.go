package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithBackoffSucceedsAfterFailures(t *testing.T) {
	cfg := Config{MaxRetries: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := WithBackoff(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithBackoffExhaustsBudget(t *testing.T) {
	cfg := Config{MaxRetries: 2, BaseDelay: time.Millisecond}

	calls := 0
	err := WithBackoff(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("always fails")
	})

	if err == nil {
		t.Error("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (initial + 2 retries), got %d", calls)
	}
}

func TestWithBackoffStopsOnCancel(t *testing.T) {
	cfg := Config{MaxRetries: 5, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithBackoff(ctx, cfg, func(context.Context) error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithBackoffPermanentError(t *testing.T) {
	cfg := Config{MaxRetries: 5, BaseDelay: time.Millisecond}

	calls := 0
	sentinel := errors.New("bad request")
	err := WithBackoff(context.Background(), cfg, func(context.Context) error {
		calls++
		return Permanent(sentinel)
	})

	if err != sentinel {
		t.Errorf("expected unwrapped sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", calls)
	}
}

func TestHTTPStatusRetryable(t *testing.T) {
	for _, code := range []int{500, 502, 503, 429} {
		if !HTTPStatusRetryable(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if HTTPStatusRetryable(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}
