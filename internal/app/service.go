package app

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/caimari/musedock/internal/domain"
)

// Platform holds the platform-wide provisioning targets: where subdomains
// live, where traffic lands, and which nameservers customers must use.
type Platform struct {
	// BaseDomain is the shared domain free subdomains are created under.
	BaseDomain string
	// SharedZoneID is the DNS zone of BaseDomain.
	SharedZoneID string
	// IngressHost is the hostname every tenant CNAME points at.
	IngressHost string
	// Nameservers are the platform's expected delegation targets, used as
	// the initial nameserver set for fresh registrations.
	Nameservers []string
	// SupportEmail is the sender for customer-facing notifications.
	SupportEmail string
}

// Actor is the request-scoped identity on whose behalf an operation runs.
// It is passed in explicitly; the orchestrator never reads ambient state.
type Actor struct {
	CustomerID string
	Superadmin bool
}

// owns reports whether the actor may act on a resource owned by customerID.
func (a Actor) owns(customerID string) bool {
	return a.Superadmin || a.CustomerID == customerID
}

// ProvisioningService orchestrates tenant and domain provisioning across
// the registrar, the DNS provider and the edge router, persisting a status
// transition after every external step so partial failures resume instead
// of restarting.
type ProvisioningService struct {
	tenants   domain.TenantRepository
	orders    domain.OrderRepository
	transfers domain.TransferRepository
	contacts  domain.ContactRepository

	registrar domain.Registrar
	zones     domain.ZoneManager
	edge      domain.EdgeRouter

	scheduler domain.TaskScheduler
	publisher domain.EventPublisher

	tenantFSM   domain.TransitionValidator
	orderFSM    domain.TransitionValidator
	transferFSM domain.TransitionValidator

	locks    *tenantLocks
	platform Platform
}

// Deps bundles the adapters a ProvisioningService needs.
type Deps struct {
	Tenants   domain.TenantRepository
	Orders    domain.OrderRepository
	Transfers domain.TransferRepository
	Contacts  domain.ContactRepository

	Registrar domain.Registrar
	Zones     domain.ZoneManager
	Edge      domain.EdgeRouter

	Scheduler domain.TaskScheduler
	Publisher domain.EventPublisher

	TenantFSM   domain.TransitionValidator
	OrderFSM    domain.TransitionValidator
	TransferFSM domain.TransitionValidator
}

// NewProvisioningService creates the orchestrator with the given adapters.
func NewProvisioningService(deps Deps, platform Platform) *ProvisioningService {
	return &ProvisioningService{
		tenants:     deps.Tenants,
		orders:      deps.Orders,
		transfers:   deps.Transfers,
		contacts:    deps.Contacts,
		registrar:   deps.Registrar,
		zones:       deps.Zones,
		edge:        deps.Edge,
		scheduler:   deps.Scheduler,
		publisher:   deps.Publisher,
		tenantFSM:   deps.TenantFSM,
		orderFSM:    deps.OrderFSM,
		transferFSM: deps.TransferFSM,
		locks:       newTenantLocks(),
		platform:    platform,
	}
}

// GetTenant returns a tenant by id, enforcing ownership.
func (s *ProvisioningService) GetTenant(ctx context.Context, actor Actor, id string) (domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}
	if !actor.owns(tenant.CustomerID) {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return tenant, nil
}

// ListTenants returns tenants matching the given filter. Non-superadmins
// are restricted to their own tenants.
func (s *ProvisioningService) ListTenants(ctx context.Context, actor Actor, filter domain.ListFilter) ([]domain.Tenant, error) {
	if !actor.Superadmin {
		filter.CustomerID = &actor.CustomerID
	}
	return s.tenants.List(ctx, filter)
}

// SearchDomains checks availability and pricing for a domain query.
func (s *ProvisioningService) SearchDomains(ctx context.Context, query string) ([]domain.DomainOffer, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Reason: "must not be empty"}
	}
	return s.registrar.Search(ctx, query)
}

// --- transition helpers ---

// applyTenantEvent validates and persists a tenant status transition.
func (s *ProvisioningService) applyTenantEvent(ctx context.Context, tenant *domain.Tenant, event domain.Event, diagnostic string) error {
	next, err := s.tenantFSM.Apply(ctx, string(tenant.Status), event)
	if err != nil {
		return err
	}
	status := domain.Status(next)
	if err := s.tenants.SetStatus(ctx, tenant.ID, status, diagnostic); err != nil {
		return fmt.Errorf("updating tenant status: %w", err)
	}
	tenant.Status = status
	tenant.Diagnostic = diagnostic
	s.publish(ctx, event, *tenant)
	return nil
}

// failTenant records an external failure on the tenant. The diagnostic is
// persisted for operators; the caller still gets the typed error.
func (s *ProvisioningService) failTenant(ctx context.Context, tenant *domain.Tenant, stepErr error) {
	_ = s.applyTenantEvent(ctx, tenant, domain.EventProvisioningFailed, stepErr.Error())
}

// applyOrderEvent validates an order status transition and writes the order.
func (s *ProvisioningService) applyOrderEvent(ctx context.Context, order *domain.DomainOrder, event domain.Event) error {
	next, err := s.orderFSM.Apply(ctx, string(order.Status), event)
	if err != nil {
		return err
	}
	order.Status = domain.OrderStatus(next)
	return s.orders.Update(ctx, *order)
}

// applyTransferEvent validates a transfer status transition and writes it.
func (s *ProvisioningService) applyTransferEvent(ctx context.Context, transfer *domain.DomainTransfer, event domain.Event) error {
	next, err := s.transferFSM.Apply(ctx, string(transfer.Status), event)
	if err != nil {
		return err
	}
	transfer.Status = domain.TransferStatus(next)
	return s.transfers.Update(ctx, *transfer)
}

// publish emits a domain event; publishing failures are swallowed since
// events are advisory, not part of the provisioning contract.
func (s *ProvisioningService) publish(ctx context.Context, event domain.Event, tenant domain.Tenant) {
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, event, tenant)
	}
}

// Scheduling failures never fail the run that produced them, but a lost
// follow-up job parks the tenant until a manual retry, so they are logged.

func (s *ProvisioningService) scheduleEdgeVerification(ctx context.Context, tenantID string) {
	if err := s.scheduler.ScheduleEdgeVerification(ctx, tenantID); err != nil {
		slog.WarnContext(ctx, "scheduling edge verification failed", "tenant_id", tenantID, "error", err)
	}
}

func (s *ProvisioningService) scheduleNameserverCheck(ctx context.Context, tenantID string) {
	if err := s.scheduler.ScheduleNameserverCheck(ctx, tenantID); err != nil {
		slog.WarnContext(ctx, "scheduling nameserver check failed", "tenant_id", tenantID, "error", err)
	}
}

func (s *ProvisioningService) scheduleMail(ctx context.Context, mail domain.Mail) {
	if err := s.scheduler.ScheduleMail(ctx, mail); err != nil {
		slog.WarnContext(ctx, "scheduling mail failed", "to", mail.To, "error", err)
	}
}

// --- validation ---

var (
	labelPattern  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
)

func validateLabel(label string) error {
	if !labelPattern.MatchString(label) {
		return &domain.ValidationError{Field: "subdomain", Reason: "must be a valid DNS label (lowercase letters, digits, hyphens)"}
	}
	return nil
}

func validateDomainName(name string) error {
	if !domainPattern.MatchString(name) {
		return &domain.ValidationError{Field: "domain", Reason: "must be a valid fully qualified domain name"}
	}
	return nil
}

func validateDomainParts(name, extension string) error {
	if !labelPattern.MatchString(name) {
		return &domain.ValidationError{Field: "domain", Reason: "must be a valid DNS label"}
	}
	if extension == "" || !domainPattern.MatchString("x."+extension) {
		return &domain.ValidationError{Field: "extension", Reason: "must be a valid top-level extension"}
	}
	return nil
}
