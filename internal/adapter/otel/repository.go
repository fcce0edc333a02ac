package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/caimari/musedock/internal/domain"
)

const tracerName = "github.com/caimari/musedock/internal/adapter/otel"

// TracingRepository wraps a domain.TenantRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.TenantRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.TenantRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Create",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID),
			attribute.String("tenant.domain", tenant.Domain),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, tenant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByID",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	tenant, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return tenant, err
}

func (r *TracingRepository) GetByDomain(ctx context.Context, fqdn string) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByDomain",
		trace.WithAttributes(attribute.String("tenant.domain", fqdn)),
	)
	defer span.End()

	tenant, err := r.next.GetByDomain(ctx, fqdn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return tenant, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.CustomerID != nil {
		span.SetAttributes(attribute.String("filter.customer_id", *filter.CustomerID))
	}

	tenants, err := r.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(tenants)))
	}
	return tenants, err
}

func (r *TracingRepository) Update(ctx context.Context, tenant domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Update",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID),
			attribute.String("tenant.status", string(tenant.Status)),
			attribute.Int64("tenant.version", tenant.Version),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, tenant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) SetStatus(ctx context.Context, id string, status domain.Status, diagnostic string) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.SetStatus",
		trace.WithAttributes(
			attribute.String("tenant.id", id),
			attribute.String("tenant.status", string(status)),
		),
	)
	defer span.End()

	err := r.next.SetStatus(ctx, id, status, diagnostic)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) LinkZone(ctx context.Context, id string, zoneID string, nameservers []string, status domain.Status) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.LinkZone",
		trace.WithAttributes(
			attribute.String("tenant.id", id),
			attribute.String("tenant.zone_id", zoneID),
			attribute.String("tenant.status", string(status)),
		),
	)
	defer span.End()

	err := r.next.LinkZone(ctx, id, zoneID, nameservers, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) LinkRoute(ctx context.Context, id string, routeID string, edgeStatus domain.EdgeStatus, status domain.Status) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.LinkRoute",
		trace.WithAttributes(
			attribute.String("tenant.id", id),
			attribute.String("tenant.route_id", routeID),
			attribute.String("tenant.edge_status", string(edgeStatus)),
			attribute.String("tenant.status", string(status)),
		),
	)
	defer span.End()

	err := r.next.LinkRoute(ctx, id, routeID, edgeStatus, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) SetEdgeStatus(ctx context.Context, id string, edgeStatus domain.EdgeStatus, diagnostic string) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.SetEdgeStatus",
		trace.WithAttributes(
			attribute.String("tenant.id", id),
			attribute.String("tenant.edge_status", string(edgeStatus)),
		),
	)
	defer span.End()

	err := r.next.SetEdgeStatus(ctx, id, edgeStatus, diagnostic)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Delete",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
