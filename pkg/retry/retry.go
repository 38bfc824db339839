// Package retry runs operations against unreliable collaborators with
// exponential backoff. Only transient failures are retried; anything the
// predicate rejects is returned on the spot.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strings"
	"syscall"
	"time"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultMultiplier   = 2.0
)

// Options configures Do. Zero fields fall back to the package defaults.
type Options struct {
	Name         string
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// ShouldRetry decides whether the error of the given 1-indexed attempt is
	// worth another try. Nil means DefaultShouldRetry.
	ShouldRetry func(err error, attempt int) bool
	// OnRetry is called after the retry is logged and before sleeping.
	OnRetry func(attempt int, delay time.Duration, err error)
	Logger  *slog.Logger
}

// DefaultOptions returns the options used for network-sensitive callers.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   DefaultMultiplier,
		ShouldRetry:  DefaultShouldRetry,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}

	if o.InitialDelay < 0 {
		o.InitialDelay = 0
	}

	if o.InitialDelay == 0 && o.MaxDelay == 0 {
		o.InitialDelay = DefaultInitialDelay
	}

	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}

	if o.Multiplier < 1 {
		o.Multiplier = DefaultMultiplier
	}

	if o.ShouldRetry == nil {
		o.ShouldRetry = DefaultShouldRetry
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.Name == "" {
		o.Name = "operation"
	}

	return o
}

// Delay returns the pause after the given failed attempt (1-indexed):
// min(MaxDelay, InitialDelay * Multiplier^(attempt-1)).
func (o Options) Delay(attempt int) time.Duration {
	o = o.withDefaults()

	if attempt < 1 {
		attempt = 1
	}

	delay := float64(o.InitialDelay) * math.Pow(o.Multiplier, float64(attempt-1))
	if delay > float64(o.MaxDelay) || math.IsInf(delay, 0) {
		return o.MaxDelay
	}

	return time.Duration(delay)
}

// Do runs op until it succeeds, the predicate rejects the error, or the
// attempt budget is spent, in which case the last error is returned.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if attempt == opts.MaxAttempts || !opts.ShouldRetry(err, attempt) {
			break
		}

		delay := opts.Delay(attempt)

		opts.Logger.WarnContext(ctx, fmt.Sprintf("%s failed, retry attempt %d/%d", opts.Name, attempt+1, opts.MaxAttempts),
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err,
		)

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, delay, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, errors.Join(lastErr, err)
		}
	}

	return zero, lastErr
}

// Run is Do for operations without a result.
func Run(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	_, err := Do(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}

// DefaultShouldRetry retries connection refusals, timeouts, network failures
// and 5xx statuses. Errors that know whether they are retryable decide for
// themselves; cancellation never retries.
func DefaultShouldRetry(err error, _ int) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var retryable interface{ Retryable() bool }
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	var status interface{ StatusCode() int }
	if errors.As(err, &status) {
		return status.StatusCode() >= 500
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "econnrefused")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
