// Package health tracks semantic evaluation errors so callers can fall back
// to structured-only validation when the reasoning service misbehaves.
package health

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultThreshold is the error count at which a Monitor turns unhealthy.
const DefaultThreshold = 3

// Snapshot is a point-in-time view of a Monitor.
type Snapshot struct {
	LastError      string    `json:"lastError,omitempty"`
	ErrorCount     int       `json:"errorCount"`
	TimeoutCount   int       `json:"timeoutCount"`
	RateLimitCount int       `json:"rateLimitCount"`
	LastErrorTime  time.Time `json:"lastErrorTime,omitzero"`
	Healthy        bool      `json:"healthy"`
}

// Monitor counts errors since the last Reset. The zero value is not usable;
// construct one with NewMonitor.
type Monitor struct {
	mu        sync.Mutex
	threshold int
	now       func() time.Time
	snapshot  Snapshot
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.threshold = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		threshold: DefaultThreshold,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RecordError counts err. Timeouts and rate limits are also counted separately.
func (m *Monitor) RecordError(err error) {
	if err == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot.ErrorCount++
	m.snapshot.LastError = err.Error()
	m.snapshot.LastErrorTime = m.now()

	if IsTimeout(err) {
		m.snapshot.TimeoutCount++
	}

	if IsRateLimit(err) {
		m.snapshot.RateLimitCount++
	}
}

// Health returns the current counters.
func (m *Monitor) Health() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snapshot
	s.Healthy = s.ErrorCount < m.threshold

	return s
}

// IsHealthy is false once the error count reaches the threshold.
func (m *Monitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot.ErrorCount < m.threshold
}

// Reset clears every counter.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = Snapshot{}
}

// IsTimeout reports whether err describes a timeout.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// IsRateLimit reports whether err describes throttling by the remote service.
func IsRateLimit(err error) bool {
	var r interface{ RateLimited() bool }
	if errors.As(err, &r) && r.RateLimited() {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "rate limit")
}
