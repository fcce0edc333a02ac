package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	adapter "github.com/caimari/musedock/internal/adapter/otel"
	"github.com/caimari/musedock/internal/domain"
)

type recordingPublisher struct {
	events  []domain.Event
	tenants []domain.Tenant
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event, t domain.Tenant) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	p.tenants = append(p.tenants, t)
	return nil
}

func TestTracingPublisher_Publish_RecordsProducerSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &recordingPublisher{}
	pub := adapter.NewTracingPublisher(inner)

	tenant := newTenant("t-1", "acme.musedock.net")
	if err := pub.Publish(context.Background(), domain.EventZoneReady, tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "EventPublisher.Publish" {
		t.Errorf("span name = %q, want %q", span.Name, "EventPublisher.Publish")
	}
	if span.SpanKind != trace.SpanKindProducer {
		t.Errorf("span kind = %v, want producer", span.SpanKind)
	}

	for attr, want := range map[string]string{
		"event.type":    "zone_ready",
		"tenant.id":     "t-1",
		"tenant.domain": "acme.musedock.net",
		"tenant.status": "pending",
		"customer.id":   "cust-1",
	} {
		assertAttribute(t, span, attr, want)
	}

	if len(inner.events) != 1 || inner.events[0] != domain.EventZoneReady {
		t.Fatalf("inner publisher saw %v, want one zone_ready event", inner.events)
	}
	if inner.tenants[0].ID != tenant.ID {
		t.Errorf("inner publisher got tenant %q, want %q", inner.tenants[0].ID, tenant.ID)
	}
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	pub := adapter.NewTracingPublisher(&recordingPublisher{err: fmt.Errorf("queue unavailable")})

	err := pub.Publish(context.Background(), domain.EventProvisioningFailed, newTenant("t-1", "acme.musedock.net"))
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if spans[0].Status.Description != "queue unavailable" {
		t.Errorf("status description = %q, want the publish error", spans[0].Status.Description)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected a recorded error event on the span")
	}
}
