package observability

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EnableTracing installs a tracer provider exporting to a Jaeger collector.
func (o *Observability) EnableTracing(serviceName, collectorEndpoint string, sampleRatio float64) error {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(collectorEndpoint)))
	if err != nil {
		return fmt.Errorf("create jaeger exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	o.tracerProvider = provider
	o.tracer = provider.Tracer(serviceName)
	return nil
}

// UseTracerProvider swaps in an existing provider, e.g. an in-memory one in tests.
func (o *Observability) UseTracerProvider(provider *sdktrace.TracerProvider, name string) {
	o.tracerProvider = provider
	o.tracer = provider.Tracer(name)
}
