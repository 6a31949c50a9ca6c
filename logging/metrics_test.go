package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMeter_ReturnsNamedMeter(t *testing.T) {
	meter := Meter("test-component")
	assert.NotNil(t, meter)
}

func TestMeter_Int64Counter(t *testing.T) {
	// Use an in-memory reader to verify metrics are recorded.
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	meter := mp.Meter("test")
	counter, err := meter.Int64Counter("test_requests_total")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("method", "GET")))
	counter.Add(ctx, 3, otelmetric.WithAttributes(attribute.String("method", "POST")))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	// Verify we got metric data
	require.NotEmpty(t, rm.ScopeMetrics)
	require.NotEmpty(t, rm.ScopeMetrics[0].Metrics)

	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "test_requests_total", m.Name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data type")
	assert.Len(t, sum.DataPoints, 2)
}

func TestCallMetrics_RecordCall(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	// NewCallMetrics reads from the package-level otel.Meter, so point the
	// global provider at our in-memory reader for the duration of the test.
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	defer otel.SetMeterProvider(original)

	cm := NewCallMetrics("rpcserver")
	cm.RecordCall(context.Background(), "math.add", "ok", 12*time.Millisecond)
	cm.RecordCall(context.Background(), "math.add", "CallError", 3*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	require.NotEmpty(t, rm.ScopeMetrics)

	var sawCounter, sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "rpc_calls_total":
				sawCounter = true
			case "rpc_call_duration_seconds":
				sawHistogram = true
			}
		}
	}
	assert.True(t, sawCounter, "expected rpc_calls_total to be recorded")
	assert.True(t, sawHistogram, "expected rpc_call_duration_seconds to be recorded")
}

func TestCallMetrics_RecordCallOnNilReceiverIsANoop(t *testing.T) {
	var cm *CallMetrics
	assert.NotPanics(t, func() {
		cm.RecordCall(context.Background(), "math.add", "ok", time.Millisecond)
	})
}

func TestMeter_Float64Histogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	meter := mp.Meter("test")
	hist, err := meter.Float64Histogram("request_duration_seconds")
	require.NoError(t, err)

	ctx := context.Background()
	hist.Record(ctx, 0.15)
	hist.Record(ctx, 0.42)
	hist.Record(ctx, 1.23)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	require.NotEmpty(t, rm.ScopeMetrics)
	require.NotEmpty(t, rm.ScopeMetrics[0].Metrics)

	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "request_duration_seconds", m.Name)

	h, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram[float64] data type")
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(3), h.DataPoints[0].Count)
}
