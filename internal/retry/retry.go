package retry

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig returns the retry policy used for outbound HTTP calls.
func DefaultConfig() Config {
	return Config{MaxRetries: 2, BaseDelay: time.Second}
}

// WithBackoff runs operation until it succeeds, the retry budget is spent, or
// the context is cancelled. Delays grow exponentially with jitter.
func WithBackoff(ctx context.Context, cfg Config, operation func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = operation(ctx)
		if err == nil || attempt >= cfg.MaxRetries {
			return err
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		delay := cfg.BaseDelay*time.Duration(1<<attempt) + time.Duration(rand.Int63n(int64(cfg.BaseDelay)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// HTTPStatusRetryable reports whether an HTTP status is worth retrying:
// server errors and rate limiting only.
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying. WithBackoff returns the
// wrapped error immediately.
func Permanent(err error) error {
	return &permanentError{err: err}
}
