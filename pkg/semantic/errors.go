package semantic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/dukex/lineforge/pkg/models"
)

// Kind classifies failures of the semantic path.
type Kind string

const (
	KindTimeout            Kind = "timeout"
	KindAPIError           Kind = "api_error"
	KindMalformedRule      Kind = "malformed_rule"
	KindCircularDependency Kind = "circular_dependency"
	KindUnknown            Kind = "unknown"
)

// ValidationError is a classified semantic evaluation error.
type ValidationError struct {
	Kind Kind
	// Status is the HTTP status of an api error, 0 when the request never
	// got an answer.
	Status int
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}

	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Retryable is true for timeouts and for api errors that are transport
// failures or 5xx answers. Malformed rules, circular dependencies and
// unknown errors are never retried.
func (e *ValidationError) Retryable() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindAPIError:
		return e.Status == 0 || e.Status >= 500
	default:
		return false
	}
}

// Timeout reports whether the error is a timeout.
func (e *ValidationError) Timeout() bool {
	return e.Kind == KindTimeout
}

// RateLimited reports whether the reasoning service throttled the call.
func (e *ValidationError) RateLimited() bool {
	return e.Kind == KindAPIError && e.Status == 429
}

func newError(kind Kind, err error) *ValidationError {
	return &ValidationError{Kind: kind, Err: err}
}

// Classify maps err onto the semantic error taxonomy. It returns nil for nil.
func Classify(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var classified *ValidationError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return newError(KindUnknown, err)
	}

	if errors.Is(err, models.ErrRuleInvalid) {
		return newError(KindMalformedRule, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, err)
	}

	var status interface{ StatusCode() int }
	if errors.As(err, &status) {
		return &ValidationError{Kind: KindAPIError, Status: status.StatusCode(), Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return newError(KindAPIError, err)
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return newError(KindTimeout, err)
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "econnrefused"):
		return newError(KindAPIError, err)
	}

	return newError(KindUnknown, err)
}

// ShouldRetry is the retry predicate for reasoning calls.
func ShouldRetry(err error, _ int) bool {
	classified := Classify(err)

	return classified != nil && classified.Retryable()
}

func malformedRule(rule models.ValidationRule, reason string) *ValidationError {
	return newError(KindMalformedRule, fmt.Errorf("%w: rule %q: %s", models.ErrRuleInvalid, rule.ID, reason))
}
