package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordPublishedAndDispatched(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPublished(ctx, "comment.created", "domain-events")
	m.RecordPublished(ctx, "comment.created", "domain-events")
	m.RecordDispatched(ctx, "comment.created", 2)
	m.RecordDropped(ctx, "domain-events", "unknown_type")

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, findMetric(rm, "eventlink.events.published")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "eventlink.events.dispatched")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "eventlink.events.dropped")))
}

func TestRecordHandler(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordHandler(ctx, "comment.created", "h", 10*time.Millisecond, nil)
	m.RecordHandler(ctx, "comment.created", "h", 10*time.Millisecond, errors.New("boom"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "eventlink.handler.errors")))

	latency := findMetric(rm, "eventlink.handler.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func TestRecordRequest(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRequest(ctx, "user", 5*time.Millisecond, true)
	m.RecordRequest(ctx, "comment", 2*time.Second, false)
	m.RecordCompensation(ctx, "post.compensation.comment_count_increase")

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "eventlink.requests.timeouts")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "eventlink.compensations.published")))
	assert.NotNil(t, findMetric(rm, "eventlink.requests.latency_ms"))
}

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordPublished(ctx, "a", "b")
		m.RecordDispatched(ctx, "a", 1)
		m.RecordDropped(ctx, "a", "b")
		m.RecordHandler(ctx, "a", "b", time.Second, errors.New("x"))
		m.RecordRequest(ctx, "a", time.Second, false)
		m.RecordCompensation(ctx, "a")
	})
}
