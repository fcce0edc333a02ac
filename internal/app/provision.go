package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caimari/musedock/internal/domain"
)

// ProvisionSubdomainRequest creates a tenant under the platform's shared
// domain. No registrar interaction is involved.
type ProvisionSubdomainRequest struct {
	Label string
	Plan  string
}

// RegisterDomainRequest registers a new domain for a customer and
// provisions a tenant for it.
type RegisterDomainRequest struct {
	Name         string
	Extension    string
	ContactID    string // empty selects the customer's default contact
	Period       int
	AutoRenew    string
	WhoisPrivacy bool
	HostingType  domain.HostingType
	Plan         string
}

// TransferDomainRequest starts an inbound transfer.
type TransferDomainRequest struct {
	Name        string
	Extension   string
	AuthCode    string
	ContactID   string
	HostingType domain.HostingType
	Plan        string
}

// AttachCustomDomainRequest connects a customer-owned domain to the
// platform ("bring your own domain").
type AttachCustomDomainRequest struct {
	Domain string
	Plan   string
	// NotifyEmail receives the nameserver-change instructions.
	NotifyEmail string
}

// ProvisionSubdomain provisions a free subdomain tenant: a record in the
// shared zone, an edge route, and a background TLS check. The tenant is
// returned in "configuring"; activation happens asynchronously.
func (s *ProvisioningService) ProvisionSubdomain(ctx context.Context, actor Actor, req ProvisionSubdomainRequest) (domain.Tenant, error) {
	if err := validateLabel(req.Label); err != nil {
		return domain.Tenant{}, err
	}

	fqdn := req.Label + "." + s.platform.BaseDomain

	id, err := newID(prefixTenant)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("generating tenant id: %w", err)
	}
	tenant := domain.NewTenant(id, actor.CustomerID, fqdn, true, req.Plan, domain.HostingFull)
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return domain.Tenant{}, err
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return domain.Tenant{}, domain.ErrProvisioningInFlight
	}
	defer release()

	// Subdomain record lives in the shared zone, proxied at the provider's
	// edge like every platform CNAME.
	if err := s.zones.EnsureCNAME(ctx, s.platform.SharedZoneID, req.Label, s.platform.IngressHost, true); err != nil {
		s.failTenant(ctx, &tenant, err)
		return tenant, err
	}

	next, err := s.tenantFSM.Apply(ctx, string(tenant.Status), domain.EventZoneReady)
	if err != nil {
		return tenant, err
	}
	if err := s.tenants.LinkZone(ctx, tenant.ID, s.platform.SharedZoneID, nil, domain.Status(next)); err != nil {
		return tenant, fmt.Errorf("linking shared zone: %w", err)
	}
	tenant.Status = domain.Status(next)
	tenant.ZoneID = s.platform.SharedZoneID
	s.publish(ctx, domain.EventZoneReady, tenant)

	s.configureEdge(ctx, &tenant)

	return s.tenants.GetByID(ctx, tenant.ID)
}

// configureEdge installs the tenant's route and schedules the TLS check.
// Edge failures are recorded on the tenant but never abort the run: the
// scheduled verification retries route installation.
func (s *ProvisioningService) configureEdge(ctx context.Context, tenant *domain.Tenant) {
	routeID, err := s.edge.AddRoute(ctx, tenant.Domain, !tenant.IsSubdomain)
	if err != nil {
		_ = s.tenants.SetEdgeStatus(ctx, tenant.ID, domain.EdgeError, err.Error())
		tenant.EdgeStatus = domain.EdgeError
	} else {
		if err := s.tenants.LinkRoute(ctx, tenant.ID, routeID, domain.EdgeActive, tenant.Status); err == nil {
			tenant.RouteID = routeID
			tenant.EdgeStatus = domain.EdgeActive
		}
	}

	s.scheduleEdgeVerification(ctx, tenant.ID)
}

// RegisterDomain drives a fresh registration end to end: order row,
// registrar call, DNS zone with platform CNAMEs, tenant row, nameserver
// handover. The order survives every failure as the audit trail.
func (s *ProvisioningService) RegisterDomain(ctx context.Context, actor Actor, req RegisterDomainRequest) (domain.DomainOrder, error) {
	if err := validateDomainParts(req.Name, req.Extension); err != nil {
		return domain.DomainOrder{}, err
	}
	hosting := req.HostingType
	if hosting == "" {
		hosting = domain.HostingFull
	}

	fqdn := req.Name + "." + req.Extension
	if err := s.checkDomainFree(ctx, fqdn); err != nil {
		return domain.DomainOrder{}, err
	}

	handle, err := s.resolveHandle(ctx, actor, req.ContactID)
	if err != nil {
		return domain.DomainOrder{}, err
	}

	orderID, err := newID(prefixOrder)
	if err != nil {
		return domain.DomainOrder{}, fmt.Errorf("generating order id: %w", err)
	}
	order := domain.NewDomainOrder(orderID, actor.CustomerID, req.Name, req.Extension, handle, hosting)
	order.AdminHandle = handle
	order.TechHandle = handle
	order.BillingHandle = handle
	order.Price, order.Currency = s.lookupPrice(ctx, fqdn)
	if err := s.orders.Create(ctx, order); err != nil {
		return domain.DomainOrder{}, err
	}

	registered, err := s.registrar.Register(ctx, domain.RegisterDomainRequest{
		Name:        req.Name,
		Extension:   req.Extension,
		OwnerHandle: handle,
		Nameservers: s.platform.Nameservers,
		Period:      req.Period,
		AutoRenew:   req.AutoRenew,
	})
	if err != nil {
		order.Diagnostic = err.Error()
		_ = s.applyOrderEvent(ctx, &order, domain.EventOrderFailed)
		return order, err
	}
	order.RegistrarDomainID = registered.RegistrarID
	if !registered.ExpiresAt.IsZero() {
		expires := registered.ExpiresAt
		order.ExpiresAt = &expires
	}

	zone, err := s.ensureZoneWithRecords(ctx, fqdn)
	if err != nil {
		order.Diagnostic = err.Error()
		_ = s.orders.Update(ctx, order)
		return order, err
	}

	// Hand the delegation over to the zone's assigned nameservers. This is
	// retryable from the domain settings surface, so a failure here only
	// leaves a diagnostic.
	if err := s.registrar.UpdateNameservers(ctx, registered.RegistrarID, zone.Nameservers); err != nil {
		order.Diagnostic = err.Error()
	}

	tenant, err := s.createTenantForDomain(ctx, actor, fqdn, req.Plan, hosting, registered.RegistrarID, zone)
	if err != nil {
		order.Diagnostic = err.Error()
		_ = s.orders.Update(ctx, order)
		return order, err
	}
	order.TenantID = tenant.ID

	if err := s.applyOrderEvent(ctx, &order, domain.EventOrderRegistered); err != nil {
		return order, err
	}

	if req.WhoisPrivacy {
		// Surfaced on the order but never fatal; the customer may need to
		// sign the privacy contract first.
		if err := s.registrar.SetWhoisPrivacy(ctx, registered.RegistrarID, true); err != nil {
			order.Diagnostic = err.Error()
			_ = s.orders.Update(ctx, order)
		}
	}

	if hosting == domain.HostingDNSOnly {
		// Nothing left to configure; the order completes with the run.
		if err := s.applyOrderEvent(ctx, &order, domain.EventOrderActivated); err != nil {
			return order, err
		}
	}

	return order, nil
}

// TransferDomain starts an inbound transfer at the registrar. The registrar
// side completes asynchronously; CompleteTransfer finishes provisioning.
func (s *ProvisioningService) TransferDomain(ctx context.Context, actor Actor, req TransferDomainRequest) (domain.DomainTransfer, error) {
	if err := validateDomainParts(req.Name, req.Extension); err != nil {
		return domain.DomainTransfer{}, err
	}
	if req.AuthCode == "" {
		return domain.DomainTransfer{}, &domain.ValidationError{Field: "auth_code", Reason: "is required for a transfer"}
	}
	hosting := req.HostingType
	if hosting == "" {
		hosting = domain.HostingFull
	}

	fqdn := req.Name + "." + req.Extension
	if err := s.checkDomainFree(ctx, fqdn); err != nil {
		return domain.DomainTransfer{}, err
	}

	handle, err := s.resolveHandle(ctx, actor, req.ContactID)
	if err != nil {
		return domain.DomainTransfer{}, err
	}

	transferID, err := newID(prefixTransfer)
	if err != nil {
		return domain.DomainTransfer{}, fmt.Errorf("generating transfer id: %w", err)
	}
	transfer := domain.NewDomainTransfer(transferID, actor.CustomerID, req.Name, req.Extension, handle, true, hosting)
	if err := s.transfers.Create(ctx, transfer); err != nil {
		return domain.DomainTransfer{}, err
	}

	started, err := s.registrar.Transfer(ctx, domain.TransferDomainRequest{
		Name:        req.Name,
		Extension:   req.Extension,
		AuthCode:    req.AuthCode,
		OwnerHandle: handle,
		Nameservers: s.platform.Nameservers,
	})
	if err != nil {
		transfer.Diagnostic = err.Error()
		_ = s.applyTransferEvent(ctx, &transfer, domain.EventTransferFailed)
		return transfer, err
	}

	transfer.RegistrarTransferID = started.TransferID
	if err := s.applyTransferEvent(ctx, &transfer, domain.EventTransferStarted); err != nil {
		return transfer, err
	}
	return transfer, nil
}

// CompleteTransfer finishes a transfer the registrar has confirmed: it
// mirrors the registration tail (zone, platform records, tenant).
func (s *ProvisioningService) CompleteTransfer(ctx context.Context, actor Actor, transferID string, registrarDomainID int64) (domain.DomainTransfer, error) {
	transfer, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return domain.DomainTransfer{}, err
	}
	if !actor.owns(transfer.CustomerID) {
		return domain.DomainTransfer{}, domain.ErrTransferNotFound
	}

	fqdn := transfer.FQDN()
	zone, err := s.ensureZoneWithRecords(ctx, fqdn)
	if err != nil {
		transfer.Diagnostic = err.Error()
		_ = s.applyTransferEvent(ctx, &transfer, domain.EventTransferFailed)
		return transfer, err
	}

	tenant, err := s.createTenantForDomain(ctx, actor, fqdn, "", transfer.HostingType, registrarDomainID, zone)
	if err != nil {
		transfer.Diagnostic = err.Error()
		_ = s.applyTransferEvent(ctx, &transfer, domain.EventTransferFailed)
		return transfer, err
	}

	transfer.TenantID = tenant.ID
	transfer.RegistrarDomainID = registrarDomainID
	if err := s.applyTransferEvent(ctx, &transfer, domain.EventTransferCompleted); err != nil {
		return transfer, err
	}
	return transfer, nil
}

// AttachCustomDomain provisions a bring-your-own domain: zone creation,
// platform records, nameserver instructions, and a background verification
// loop. The tenant stays in waiting_ns_change until the DNS provider sees
// itself as authoritative.
func (s *ProvisioningService) AttachCustomDomain(ctx context.Context, actor Actor, req AttachCustomDomainRequest) (domain.Tenant, error) {
	if err := validateDomainName(req.Domain); err != nil {
		return domain.Tenant{}, err
	}

	tenant, err := s.tenants.GetByDomain(ctx, req.Domain)
	switch {
	case err == nil:
		// Reuse a pending tenant from an earlier aborted attempt.
		if !actor.owns(tenant.CustomerID) || tenant.Status != domain.StatusPending {
			return domain.Tenant{}, &domain.DomainConflictError{Domain: req.Domain}
		}
	case errors.Is(err, domain.ErrTenantNotFound):
		id, genErr := newID(prefixTenant)
		if genErr != nil {
			return domain.Tenant{}, fmt.Errorf("generating tenant id: %w", genErr)
		}
		tenant = domain.NewTenant(id, actor.CustomerID, req.Domain, false, req.Plan, domain.HostingFull)
		if err := s.tenants.Create(ctx, tenant); err != nil {
			return domain.Tenant{}, err
		}
	default:
		return domain.Tenant{}, err
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return domain.Tenant{}, domain.ErrProvisioningInFlight
	}
	defer release()

	zone, err := s.ensureZoneWithRecords(ctx, req.Domain)
	if err != nil {
		s.failTenant(ctx, &tenant, err)
		return tenant, err
	}

	next, err := s.tenantFSM.Apply(ctx, string(tenant.Status), domain.EventNSInstructionsSent)
	if err != nil {
		return tenant, err
	}
	if err := s.tenants.LinkZone(ctx, tenant.ID, zone.ID, zone.Nameservers, domain.Status(next)); err != nil {
		return tenant, fmt.Errorf("linking zone: %w", err)
	}
	tenant.Status = domain.Status(next)
	tenant.ZoneID = zone.ID
	tenant.Nameservers = zone.Nameservers
	s.publish(ctx, domain.EventNSInstructionsSent, tenant)

	if req.NotifyEmail != "" {
		s.scheduleMail(ctx, nameserverInstructions(req.NotifyEmail, tenant))
	}
	s.scheduleNameserverCheck(ctx, tenant.ID)

	return tenant, nil
}

// checkDomainFree rejects a domain already held by a live tenant or an
// in-flight order.
func (s *ProvisioningService) checkDomainFree(ctx context.Context, fqdn string) error {
	if _, err := s.tenants.GetByDomain(ctx, fqdn); err == nil {
		return &domain.DomainConflictError{Domain: fqdn}
	} else if !errors.Is(err, domain.ErrTenantNotFound) {
		return err
	}

	if _, err := s.orders.GetOpenByDomain(ctx, fqdn); err == nil {
		return &domain.DomainConflictError{Domain: fqdn}
	} else if !errors.Is(err, domain.ErrOrderNotFound) {
		return err
	}
	return nil
}

// lookupPrice fetches the registration price for the audit trail. Pricing
// on the order is informational, so a failed lookup never blocks the run.
func (s *ProvisioningService) lookupPrice(ctx context.Context, fqdn string) (float64, string) {
	offers, err := s.registrar.Search(ctx, fqdn)
	if err != nil {
		slog.WarnContext(ctx, "price lookup failed", "domain", fqdn, "error", err)
		return 0, ""
	}
	for _, offer := range offers {
		if offer.Domain == fqdn {
			return offer.Price, offer.Currency
		}
	}
	return 0, ""
}

// resolveHandle finds the contact to register under and makes sure it is
// mirrored at the registrar, persisting a newly minted handle.
func (s *ProvisioningService) resolveHandle(ctx context.Context, actor Actor, contactID string) (string, error) {
	var contact domain.DomainContact
	var err error
	if contactID != "" {
		contact, err = s.contacts.GetByID(ctx, contactID)
		if err == nil && !actor.owns(contact.CustomerID) {
			err = domain.ErrContactNotFound
		}
	} else {
		contact, err = s.contacts.GetDefault(ctx, actor.CustomerID)
	}
	if err != nil {
		return "", err
	}

	hadHandle := contact.Handle != ""
	handle, err := s.registrar.GetOrCreateContact(ctx, contact)
	if err != nil {
		return "", err
	}
	if !hadHandle {
		contact.Handle = handle
		if err := s.contacts.Update(ctx, contact); err != nil {
			return "", err
		}
	}
	return handle, nil
}

// ensureZoneWithRecords creates (or recovers) the domain's zone and makes
// sure the two platform CNAMEs exist: "@" and "www", both proxied at the
// provider's edge and pointed at the shared ingress host.
func (s *ProvisioningService) ensureZoneWithRecords(ctx context.Context, fqdn string) (domain.Zone, error) {
	zone, err := s.zones.CreateZone(ctx, fqdn)
	if err != nil {
		return domain.Zone{}, err
	}
	if err := s.zones.EnsureCNAME(ctx, zone.ID, "@", s.platform.IngressHost, true); err != nil {
		return domain.Zone{}, err
	}
	if err := s.zones.EnsureCNAME(ctx, zone.ID, "www", s.platform.IngressHost, true); err != nil {
		return domain.Zone{}, err
	}
	return zone, nil
}

// createTenantForDomain creates (or reuses) the tenant row for a freshly
// registered or transferred domain and starts edge configuration. The
// registrar already delegates to the platform, so no nameserver wait is
// needed: the tenant goes straight to configuring.
func (s *ProvisioningService) createTenantForDomain(ctx context.Context, actor Actor, fqdn, plan string, hosting domain.HostingType, registrarID int64, zone domain.Zone) (domain.Tenant, error) {
	tenant, err := s.tenants.GetByDomain(ctx, fqdn)
	if errors.Is(err, domain.ErrTenantNotFound) {
		id, genErr := newID(prefixTenant)
		if genErr != nil {
			return domain.Tenant{}, fmt.Errorf("generating tenant id: %w", genErr)
		}
		tenant = domain.NewTenant(id, actor.CustomerID, fqdn, false, plan, hosting)
		tenant.RegistrarDomainID = registrarID
		if err := s.tenants.Create(ctx, tenant); err != nil {
			return domain.Tenant{}, err
		}
	} else if err != nil {
		return domain.Tenant{}, err
	}

	next, err := s.tenantFSM.Apply(ctx, string(tenant.Status), domain.EventZoneReady)
	if err != nil {
		return tenant, err
	}
	if err := s.tenants.LinkZone(ctx, tenant.ID, zone.ID, zone.Nameservers, domain.Status(next)); err != nil {
		return tenant, fmt.Errorf("linking zone: %w", err)
	}
	tenant.Status = domain.Status(next)
	tenant.ZoneID = zone.ID
	tenant.Nameservers = zone.Nameservers
	s.publish(ctx, domain.EventZoneReady, tenant)

	if hosting == domain.HostingDNSOnly {
		// Pure DNS hosting has no edge step; the tenant is live once the
		// zone exists.
		if err := s.applyTenantEvent(ctx, &tenant, domain.EventEdgeConfigured, ""); err != nil {
			return tenant, err
		}
		return s.tenants.GetByID(ctx, tenant.ID)
	}

	s.configureEdge(ctx, &tenant)
	return s.tenants.GetByID(ctx, tenant.ID)
}

// nameserverInstructions renders the customer email for a pending
// nameserver change.
func nameserverInstructions(to string, tenant domain.Tenant) domain.Mail {
	body := "To activate " + tenant.Domain + ", update your domain's nameservers at your current registrar to:\n\n"
	for _, ns := range tenant.Nameservers {
		body += "  " + ns + "\n"
	}
	body += "\nActivation happens automatically once the change propagates. This can take up to 24 hours.\n"
	return domain.Mail{
		To:      to,
		Subject: "Action required: nameserver change for " + tenant.Domain,
		Body:    body,
	}
}
