// Package telemetry defines the small logging/metrics/tracing interfaces the
// runtime uses throughout. Implementations typically delegate to Clue/OTEL,
// but the interfaces stay intentionally narrow so tests can stub them cheaply.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the runtime.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for runtime instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so runtime code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// StepTelemetry captures observability metadata collected while producing a
// single Step (one inference call plus any synchronous tool side effects).
type StepTelemetry struct {
	// DurationMs is the wall-clock time spent producing the step.
	DurationMs int64
	// TokensUsed tracks tokens consumed by the inference call, if any.
	TokensUsed int
	// Model identifies which model served the inference call.
	Model string
	// Extra holds step-specific metadata (tool name, yield reason, etc.).
	Extra map[string]any
}
