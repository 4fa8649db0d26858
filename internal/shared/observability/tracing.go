package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracer is the process-wide tracer. Spans are no-ops until InitTracing
// installs a real provider.
var Tracer = otel.Tracer("reqsift")

// InitTracing wires an OTLP gRPC exporter to endpoint and returns the
// provider shutdown function. Callers must invoke it before exit so
// buffered spans get flushed.
func InitTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "reqsift"),
		)),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("reqsift")

	return provider.Shutdown, nil
}
