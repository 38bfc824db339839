package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span failed and records err with optional context.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetResult annotates the span with a validation outcome.
func SetResult(span trace.Span, pass bool, failureCount int) {
	span.SetAttributes(
		attribute.Bool(ResultPassKey, pass),
		attribute.Int(FailureCountKey, failureCount),
	)
}
