// Package opentelemetry sets up the tracer provider the daemon loop records
// its batch spans with.
package opentelemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracingServiceName = "watchdog-mux"

var tracer = otel.Tracer(tracingServiceName)

// Tracer returns the tracer of the daemon. It records into the global
// provider, which is a no-op until InitTracing was called.
func Tracer() trace.Tracer {
	return tracer
}

// InitTracing configures the OTLP exporter and installs the global tracer
// provider. Root spans are sampled at samplingRate per million.
func InitTracing(ctx context.Context, collectorAddress string, samplingRate int) (*sdktrace.TracerProvider, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("get hostname: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(tracingServiceName),
		semconv.HostNameKey.String(hostname),
		semconv.ProcessPIDKey.Int64(int64(os.Getpid())),
	)

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(collectorAddress),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(Sampler(samplingRate)),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp, nil
}

// Sampler returns the sampler for a rate per million. A rate of zero or less
// samples nothing, a million or more samples everything.
func Sampler(samplingRate int) sdktrace.Sampler {
	sampler := sdktrace.NeverSample()
	if samplingRate > 0 {
		sampler = sdktrace.TraceIDRatioBased(float64(samplingRate) / float64(1000000))
	}
	return sdktrace.ParentBased(sampler)
}
