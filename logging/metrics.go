package logging

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

var (
	meterProvider *sdkmetric.MeterProvider
)

// Meter returns a named meter from the global MeterProvider.
// Use this to create instruments (counters, histograms, gauges):
//
//	meter := logging.Meter("mypackage")
//	counter, _ := meter.Int64Counter("requests_total")
//	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "GET")))
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// DefaultMetricExportInterval is how often metrics are exported to the
// OTLP collector when Config.MetricExportInterval is not set.
const DefaultMetricExportInterval = 60 * time.Second

// setupMetrics creates an OTLP gRPC metric exporter and registers it as
// the global MeterProvider with periodic export.
func setupMetrics(cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("create OTLP metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create metric resource: %w", err)
	}

	interval := DefaultMetricExportInterval
	if cfg.MetricExportInterval > 0 {
		interval = cfg.MetricExportInterval
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(interval),
			),
		),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)
	meterProvider = mp
	return nil
}

// shutdownMetrics flushes pending metrics and shuts down the MeterProvider.
func shutdownMetrics(ctx context.Context) error {
	if meterProvider != nil {
		err := meterProvider.Shutdown(ctx)
		meterProvider = nil
		return err
	}
	return nil
}

// CallMetrics are the two instruments an RPC call site actually emits: how
// many calls ran, tagged by outcome, and how long they took. Both the
// dispatcher and the client build one of these, under their own component
// name, against whatever MeterProvider Configure installed (the OTel
// default no-op meter if Configure was never called).
type CallMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewCallMetrics builds the call counter/histogram pair for component
// (e.g. "rpcserver" or "rpcclient").
func NewCallMetrics(component string) *CallMetrics {
	meter := Meter(component)

	calls, _ := meter.Int64Counter("rpc_calls_total",
		metric.WithDescription("number of RPC calls handled, by outcome"))
	duration, _ := meter.Float64Histogram("rpc_call_duration_seconds",
		metric.WithDescription("RPC call duration in seconds"))

	return &CallMetrics{calls: calls, duration: duration}
}

// RecordCall records one call's outcome ("ok" or an error kind) and how
// long it took, tagged by the call label it is given (rpcserver and
// rpcclient pass the bare call name).
func (m *CallMetrics) RecordCall(ctx context.Context, call, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("call", call),
		attribute.String("outcome", outcome),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
