// Package reasoning provides the client the semantic evaluator uses to reach
// the reasoning service.
package reasoning

import (
	"context"
	"errors"
	"fmt"
)

// Client generates text for a prompt. Implementations may fail on timeouts
// or transport errors; callers classify and retry those.
type Client interface {
	GenerateContent(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt, systemInstruction string) (string, error)

// GenerateContent calls f.
func (f ClientFunc) GenerateContent(ctx context.Context, prompt, systemInstruction string) (string, error) {
	return f(ctx, prompt, systemInstruction)
}

var (
	// ErrEmptyResponse is returned when the service answers without any text.
	ErrEmptyResponse = errors.New("reasoning service returned no content")
	// ErrNotConfigured is returned by clients that have no endpoint to call.
	ErrNotConfigured = errors.New("reasoning client is not configured")
)

// StatusError is a non-2xx answer from the reasoning service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("reasoning api error: status %d: %s", e.Code, e.Body)
	}

	return fmt.Sprintf("reasoning api error: status %d", e.Code)
}

// StatusCode returns the HTTP status of the answer.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// RateLimited reports whether the service throttled the request.
func (e *StatusError) RateLimited() bool {
	return e.Code == 429
}
