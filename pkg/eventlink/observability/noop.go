package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordPublished(_ context.Context, _, _ string)                          {}
func (NoopMetrics) RecordDispatched(_ context.Context, _ string, _ int)                     {}
func (NoopMetrics) RecordDropped(_ context.Context, _, _ string)                            {}
func (NoopMetrics) RecordHandler(_ context.Context, _, _ string, _ time.Duration, _ error) {}
func (NoopMetrics) RecordRequest(_ context.Context, _ string, _ time.Duration, _ bool)      {}
func (NoopMetrics) RecordCompensation(_ context.Context, _ string)                         {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartDispatchSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDispatchSpan(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
