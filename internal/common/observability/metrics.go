package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	stageDuration  otelmetric.Float64Histogram
}

// New builds the meter provider. Tracing stays a no-op until EnableTracing
// is called.
func New(serviceName string) *Observability {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)

	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	stageDuration, _ := meter.Float64Histogram(
		"text_to_sql.stage.duration",
		otelmetric.WithDescription("Duration of one text-to-SQL pipeline stage"),
		otelmetric.WithUnit("ms"),
	)

	o.meterProvider = provider
	o.meter = meter
	o.jobCounter = jobCounter
	o.jobDuration = jobDuration
	o.stageDuration = stageDuration
	return o
}

// NewNoop returns an Observability that records nothing. Used by tests and
// by components constructed without a provider.
func NewNoop() *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer("noop")}
}

// StartSpan opens a span for one pipeline stage. The returned func ends the
// span and records the stage duration with the given status.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(status string)) {
	tracer := o.tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	start := time.Now()
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(status string) {
		span.SetAttributes(attribute.String("status", status))
		span.End()
		if o.stageDuration != nil {
			o.stageDuration.Record(ctx, float64(time.Since(start).Milliseconds()), otelmetric.WithAttributes(
				attribute.String("stage", name),
				attribute.String("status", status),
			))
		}
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
