package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records eventing metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublished records an event handed to the transport.
	RecordPublished(ctx context.Context, eventType, channel string)

	// RecordDispatched records an event delivered to its handlers.
	RecordDispatched(ctx context.Context, eventType string, handlers int)

	// RecordDropped records a message discarded before dispatch.
	RecordDropped(ctx context.Context, channel, reason string)

	// RecordHandler records one handler invocation with its duration and error status.
	RecordHandler(ctx context.Context, eventType, handler string, duration time.Duration, err error)

	// RecordRequest records how a correlated request ended.
	RecordRequest(ctx context.Context, kind string, duration time.Duration, resolved bool)

	// RecordCompensation records a compensation event emitted by a failed handler.
	RecordCompensation(ctx context.Context, eventType string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	published      metric.Int64Counter
	dispatched     metric.Int64Counter
	dropped        metric.Int64Counter
	handlerErrors  metric.Int64Counter
	handlerLatency metric.Float64Histogram
	timeouts       metric.Int64Counter
	requestLatency metric.Float64Histogram
	compensations  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventlink")

	published, err := meter.Int64Counter("eventlink.events.published",
		metric.WithDescription("Number of events handed to the transport"),
	)
	if err != nil {
		return nil, err
	}

	dispatched, err := meter.Int64Counter("eventlink.events.dispatched",
		metric.WithDescription("Number of events delivered to handlers"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter("eventlink.events.dropped",
		metric.WithDescription("Number of inbound messages discarded before dispatch"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("eventlink.handler.errors",
		metric.WithDescription("Number of failed handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("eventlink.handler.latency_ms",
		metric.WithDescription("Handler latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	timeouts, err := meter.Int64Counter("eventlink.requests.timeouts",
		metric.WithDescription("Number of correlated requests that timed out"),
	)
	if err != nil {
		return nil, err
	}

	requestLatency, err := meter.Float64Histogram("eventlink.requests.latency_ms",
		metric.WithDescription("Time spent waiting for correlated responses in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	compensations, err := meter.Int64Counter("eventlink.compensations.published",
		metric.WithDescription("Number of compensation events published"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		published:      published,
		dispatched:     dispatched,
		dropped:        dropped,
		handlerErrors:  handlerErrors,
		handlerLatency: handlerLatency,
		timeouts:       timeouts,
		requestLatency: requestLatency,
		compensations:  compensations,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordPublished(ctx context.Context, eventType, channel string) {
	m.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("channel", channel),
	))
}

func (m *otelMetrics) RecordDispatched(ctx context.Context, eventType string, handlers int) {
	m.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Int("handlers", handlers),
	))
}

func (m *otelMetrics) RecordDropped(ctx context.Context, channel, reason string) {
	m.dropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("reason", reason),
	))
}

func (m *otelMetrics) RecordHandler(ctx context.Context, eventType, handler string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("handler", handler),
	)
	m.handlerLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.handlerErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordRequest(ctx context.Context, kind string, duration time.Duration, resolved bool) {
	m.requestLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("resolved", resolved),
	))
	if !resolved {
		m.timeouts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *otelMetrics) RecordCompensation(ctx context.Context, eventType string) {
	m.compensations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}
