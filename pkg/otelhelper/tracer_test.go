package otelhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_NilTracerIsNoop(t *testing.T) {
	ctx, span := StartSpan(context.Background(), nil, "validate")
	defer span.End()

	require.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
}

func TestSetErrorAndResult(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "semantic.evaluate", attribute.String(RuleIDKey, "r-1"))
	SetResult(span, false, 2)
	SetError(span, errors.New("reasoning timeout"), attribute.String(ErrorKindKey, "timeout"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	got := spans[0]
	assert.Equal(t, "semantic.evaluate", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "reasoning timeout", got.Status().Description)
	assert.Contains(t, got.Attributes(), attribute.String(RuleIDKey, "r-1"))
	assert.Contains(t, got.Attributes(), attribute.Bool(ResultPassKey, false))
	assert.Contains(t, got.Attributes(), attribute.Int(FailureCountKey, 2))
}
