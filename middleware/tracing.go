package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prabhatkmr/beema-sub003/pipeline"
)

// tracerName is the instrumentation scope name for beema tracing.
const tracerName = "github.com/prabhatkmr/beema-sub003"

// Tracing returns middleware that wraps run execution in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: beema.run.id, beema.job.name, beema.tenant_id.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, run *pipeline.Run, next Handler) error {
		ctx, span := tracer.Start(ctx, "beema.run.execute",
			trace.WithAttributes(
				attribute.String("beema.run.id", run.ID.String()),
				attribute.String("beema.job.name", run.JobName),
				attribute.String("beema.tenant_id", run.TenantID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
