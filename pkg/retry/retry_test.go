package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

type classified bool

func (c classified) Error() string   { return "classified" }
func (c classified) Retryable() bool { return bool(c) }

func TestDo_AlwaysTimeoutUsesWholeBudget(t *testing.T) {
	var (
		calls  int
		delays []time.Duration
	)

	opts := Options{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Logger:       quietLogger,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			delays = append(delays, delay)
		},
	}

	timeoutErr := errors.New("request timeout")

	start := time.Now()
	_, err := Do(context.Background(), opts, func(context.Context) (string, error) {
		calls++

		return "", fmt.Errorf("attempt %d: %w", calls, timeoutErr)
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, timeoutErr)
	assert.Equal(t, "attempt 3: request timeout", err.Error(), "the last error is returned")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}

func TestDo_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0

	result, err := Do(context.Background(), Options{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Logger: quietLogger},
		func(context.Context) (int, error) {
			calls++
			if calls < 2 {
				return 0, statusErr(503)
			}

			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, calls)
}

func TestDo_NonRetryableErrorPropagatesImmediately(t *testing.T) {
	calls := 0
	malformed := errors.New("malformed rule")

	err := Run(context.Background(), Options{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Logger: quietLogger},
		func(context.Context) error {
			calls++

			return malformed
		})

	assert.ErrorIs(t, err, malformed)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomPredicate(t *testing.T) {
	calls := 0

	err := Run(context.Background(), Options{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Logger:       quietLogger,
		ShouldRetry: func(_ error, attempt int) bool {
			return attempt < 2
		},
	}, func(context.Context) error {
		calls++

		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0

	err := Run(ctx, Options{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour, Logger: quietLogger,
		OnRetry: func(int, time.Duration, error) { cancel() },
	}, func(context.Context) error {
		calls++

		return errors.New("network unreachable")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestOptions_Delay(t *testing.T) {
	opts := Options{InitialDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Multiplier: 2}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 1, expected: 100 * time.Millisecond},
		{attempt: 2, expected: 200 * time.Millisecond},
		{attempt: 3, expected: 400 * time.Millisecond},
		{attempt: 4, expected: 500 * time.Millisecond},
		{attempt: 60, expected: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, opts.Delay(tt.attempt))
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, time.Second, opts.Delay(1))
	assert.Equal(t, 2*time.Second, opts.Delay(2))
	assert.Equal(t, 10*time.Second, opts.Delay(10))
}

func TestDefaultShouldRetry(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "timeout message", err: errors.New("Gateway Timeout while waiting"), expected: true},
		{name: "network message", err: errors.New("network is unreachable"), expected: true},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), expected: true},
		{name: "deadline", err: context.DeadlineExceeded, expected: true},
		{name: "server error", err: statusErr(502), expected: true},
		{name: "client error", err: statusErr(400), expected: false},
		{name: "rate limited", err: statusErr(429), expected: false},
		{name: "cancelled", err: context.Canceled, expected: false},
		{name: "self classified retryable", err: classified(true), expected: true},
		{name: "self classified permanent", err: fmt.Errorf("wrapped: %w", classified(false)), expected: false},
		{name: "validation shaped", err: errors.New("malformed rule: missing prompt"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultShouldRetry(tt.err, 1))
		})
	}
}
