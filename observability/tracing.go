package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the node-wide tracer used to span every dispatcher
// operation and poll cycle (SPEC_FULL.md §4.J).
var Tracer = otel.Tracer("frappy-core")

// InitTracer initialises OpenTelemetry tracing with an OTLP exporter
// reporting to collectorEndpoint. Returns a shutdown func to call on
// node termination.
func InitTracer(ctx context.Context, nodeName, collectorEndpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(collectorEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", "frappy-core"),
			attribute.String("secop.node", nodeName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// StartSpan begins a span named op for one dispatcher request or poll
// cycle, ending it is the caller's responsibility (defer span.End()).
func StartSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, op)
}
