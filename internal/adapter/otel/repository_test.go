package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/caimari/musedock/internal/adapter/otel"
	"github.com/caimari/musedock/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock repository ---

type mockRepo struct {
	tenants map[string]domain.Tenant
}

func newMockRepo() *mockRepo {
	return &mockRepo{tenants: make(map[string]domain.Tenant)}
}

func (m *mockRepo) Create(_ context.Context, t domain.Tenant) error {
	m.tenants[t.ID] = t
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (domain.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (m *mockRepo) GetByDomain(_ context.Context, fqdn string) (domain.Tenant, error) {
	for _, t := range m.tenants {
		if t.Domain == fqdn {
			return t, nil
		}
	}
	return domain.Tenant{}, domain.ErrTenantNotFound
}

func (m *mockRepo) List(_ context.Context, _ domain.ListFilter) ([]domain.Tenant, error) {
	out := make([]domain.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, t domain.Tenant) error {
	if _, ok := m.tenants[t.ID]; !ok {
		return domain.ErrTenantNotFound
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *mockRepo) SetStatus(_ context.Context, id string, status domain.Status, diagnostic string) error {
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.Status = status
	t.Diagnostic = diagnostic
	m.tenants[id] = t
	return nil
}

func (m *mockRepo) LinkZone(_ context.Context, id string, zoneID string, nameservers []string, status domain.Status) error {
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.ZoneID = zoneID
	t.Nameservers = nameservers
	t.Status = status
	m.tenants[id] = t
	return nil
}

func (m *mockRepo) LinkRoute(_ context.Context, id string, routeID string, edgeStatus domain.EdgeStatus, status domain.Status) error {
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.RouteID = routeID
	t.EdgeStatus = edgeStatus
	t.Status = status
	m.tenants[id] = t
	return nil
}

func (m *mockRepo) SetEdgeStatus(_ context.Context, id string, edgeStatus domain.EdgeStatus, diagnostic string) error {
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.EdgeStatus = edgeStatus
	t.Diagnostic = diagnostic
	m.tenants[id] = t
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.tenants[id]; !ok {
		return domain.ErrTenantNotFound
	}
	delete(m.tenants, id)
	return nil
}

func newTenant(id, fqdn string) domain.Tenant {
	return domain.NewTenant(id, "cust-1", fqdn, true, "free", domain.HostingFull)
}

// --- Tests ---

func TestTracingRepository_Create_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	tenant := newTenant("t-1", "acme.musedock.net")
	if err := repo.Create(context.Background(), tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "TenantRepository.Create" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "TenantRepository.Create")
	}

	assertAttribute(t, spans[0], "tenant.id", "t-1")
	assertAttribute(t, spans[0], "tenant.domain", "acme.musedock.net")
}

func TestTracingRepository_GetByID_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.tenants["t-1"] = newTenant("t-1", "acme.musedock.net")

	got, err := repo.GetByID(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "t-1" {
		t.Errorf("ID = %q, want %q", got.ID, "t-1")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "TenantRepository.GetByID" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "TenantRepository.GetByID")
	}
}

func TestTracingRepository_GetByID_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}

	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingRepository_List_RecordsResultCount(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.tenants["t-1"] = newTenant("t-1", "a.musedock.net")
	inner.tenants["t-2"] = newTenant("t-2", "b.musedock.net")

	tenants, err := repo.List(context.Background(), domain.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenants) != 2 {
		t.Errorf("got %d tenants, want 2", len(tenants))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "result.count", "2")
}

func TestTracingRepository_Update_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	tenant := newTenant("t-1", "acme.musedock.net")
	inner.tenants["t-1"] = tenant

	tenant.Status = domain.StatusActive
	if err := repo.Update(context.Background(), tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "TenantRepository.Update" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "TenantRepository.Update")
	}

	assertAttribute(t, spans[0], "tenant.status", "active")
}

func TestTracingRepository_GetByDomain_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.tenants["t-1"] = newTenant("t-1", "acme.musedock.net")

	got, err := repo.GetByDomain(context.Background(), "acme.musedock.net")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "t-1" {
		t.Errorf("ID = %q, want %q", got.ID, "t-1")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "tenant.domain", "acme.musedock.net")
}

func TestTracingRepository_LinkZone_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.tenants["t-1"] = newTenant("t-1", "ferrer.cat")

	err := repo.LinkZone(context.Background(), "t-1", "zone-1", []string{"ana.ns.example.com"}, domain.StatusConfiguring)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "TenantRepository.LinkZone" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "TenantRepository.LinkZone")
	}

	assertAttribute(t, spans[0], "tenant.zone_id", "zone-1")
	assertAttribute(t, spans[0], "tenant.status", "configuring")
}

func TestTracingRepository_LinkRoute_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.tenants["t-1"] = newTenant("t-1", "acme.musedock.net")

	err := repo.LinkRoute(context.Background(), "t-1", "route-1", domain.EdgeActive, domain.StatusActive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "tenant.route_id", "route-1")
	assertAttribute(t, spans[0], "tenant.edge_status", "active")
}

func TestTracingRepository_Delete_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	err := repo.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
