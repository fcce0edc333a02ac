package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/caimari/musedock/internal/domain"
)

// TracingPublisher decorates a domain.EventPublisher with a producer
// span per published event. The span carries the tenant snapshot the
// downstream worker will see, which makes queue lag visible when the
// consumer span links back to it.
type TracingPublisher struct {
	next   domain.EventPublisher
	tracer trace.Tracer
}

var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EventPublisher) *TracingPublisher {
	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.Event, tenant domain.Tenant) error {
	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(eventAttributes(event, tenant)...),
	)
	defer span.End()

	if err := p.next.Publish(ctx, event, tenant); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func eventAttributes(event domain.Event, tenant domain.Tenant) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("event.type", string(event)),
		attribute.String("tenant.id", tenant.ID),
		attribute.String("tenant.domain", tenant.Domain),
		attribute.String("tenant.status", string(tenant.Status)),
		attribute.String("customer.id", tenant.CustomerID),
	}
}
