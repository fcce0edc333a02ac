package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caimari/musedock/internal/domain"
)

// VerifyEdge runs one bounded TLS verification attempt for a tenant in
// "configuring". It is invoked from the background task queue, never from a
// request thread. The return value reports whether polling is finished:
// false asks the queue to try again later.
//
// On the final attempt a tenant whose route is installed activates even
// without confirmed TLS; certificate issuance continues at the edge and the
// pending state is kept as a diagnostic. A tenant whose route could not be
// installed at all moves to "error" instead.
func (s *ProvisioningService) VerifyEdge(ctx context.Context, tenantID string, final bool) (bool, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			return true, nil
		}
		return false, err
	}
	if tenant.Status != domain.StatusConfiguring {
		// Activated, failed or deleted by another path; nothing to poll.
		return true, nil
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return false, domain.ErrProvisioningInFlight
	}
	defer release()

	if err := s.ensureRoute(ctx, &tenant); err != nil {
		if !final {
			return false, nil
		}
		s.failTenant(ctx, &tenant, err)
		return true, nil
	}

	probe, err := s.edge.VerifyDomain(ctx, tenant.Domain)
	if err == nil && probe.SSLValid {
		if err := s.applyTenantEvent(ctx, &tenant, domain.EventEdgeConfigured, ""); err != nil {
			return false, err
		}
		s.activateOrder(ctx, tenant)
		return true, nil
	}

	if !final {
		return false, nil
	}

	// TLS pending is reported but non-blocking: the tenant goes live and
	// the edge finishes issuance on its own.
	if err := s.applyTenantEvent(ctx, &tenant, domain.EventEdgeConfigured, "tls issuance pending"); err != nil {
		return false, err
	}
	s.activateOrder(ctx, tenant)
	return true, nil
}

// ensureRoute makes sure the tenant's edge route is installed, reusing the
// stored route id when it still exists. Two concurrent runs cannot create
// two routes: route ids are derived from the domain and installation
// replaces an existing id.
func (s *ProvisioningService) ensureRoute(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.RouteID != "" {
		exists, err := s.edge.RouteExists(ctx, tenant.RouteID)
		if err == nil && exists {
			if tenant.EdgeStatus != domain.EdgeActive {
				_ = s.tenants.SetEdgeStatus(ctx, tenant.ID, domain.EdgeActive, "")
				tenant.EdgeStatus = domain.EdgeActive
			}
			return nil
		}
	}

	routeID, err := s.edge.AddRoute(ctx, tenant.Domain, !tenant.IsSubdomain)
	if err != nil {
		_ = s.tenants.SetEdgeStatus(ctx, tenant.ID, domain.EdgeError, err.Error())
		tenant.EdgeStatus = domain.EdgeError
		return err
	}
	if err := s.tenants.LinkRoute(ctx, tenant.ID, routeID, domain.EdgeActive, tenant.Status); err != nil {
		return err
	}
	tenant.RouteID = routeID
	tenant.EdgeStatus = domain.EdgeActive
	return nil
}

// activateOrder completes the audit-trail order once its tenant is live.
func (s *ProvisioningService) activateOrder(ctx context.Context, tenant domain.Tenant) {
	order, err := s.orders.GetOpenByDomain(ctx, tenant.Domain)
	if err != nil || order.Status != domain.OrderRegistered {
		return
	}
	_ = s.applyOrderEvent(ctx, &order, domain.EventOrderActivated)
}

// CheckNameservers runs one nameserver verification attempt for a custom
// domain. It reports whether the DNS provider confirmed delegation; a
// tenant whose nameservers were never changed simply stays in
// waiting_ns_change, however often this is called.
func (s *ProvisioningService) CheckNameservers(ctx context.Context, tenantID string) (bool, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return false, err
	}
	switch tenant.Status {
	case domain.StatusWaitingNSChange:
		// The one state this check progresses.
	case domain.StatusConfiguring, domain.StatusActive:
		return true, nil
	default:
		return false, nil
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return false, domain.ErrProvisioningInFlight
	}
	defer release()

	check, err := s.zones.VerifyNameservers(ctx, tenant.ZoneID)
	if err != nil {
		return false, err
	}
	if !check.Active {
		return false, nil
	}

	if err := s.applyTenantEvent(ctx, &tenant, domain.EventNSVerified, ""); err != nil {
		return false, err
	}
	s.configureEdge(ctx, &tenant)
	return true, nil
}

// CheckNameserversFor is the ownership-enforcing entry point for the manual
// check endpoint; the background job calls CheckNameservers directly.
func (s *ProvisioningService) CheckNameserversFor(ctx context.Context, actor Actor, tenantID string) (bool, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if !actor.owns(tenant.CustomerID) {
		return false, domain.ErrTenantNotFound
	}
	return s.CheckNameservers(ctx, tenantID)
}

// Retry re-enters the provisioning step an errored tenant failed at. The
// step is chosen from which external ids the tenant already holds, so a
// retry never repeats work that succeeded.
func (s *ProvisioningService) Retry(ctx context.Context, actor Actor, tenantID string) (domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	if !actor.owns(tenant.CustomerID) {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return domain.Tenant{}, domain.ErrProvisioningInFlight
	}
	defer release()

	if err := s.applyTenantEvent(ctx, &tenant, tenant.RetryEvent(), ""); err != nil {
		return tenant, err
	}

	switch tenant.Status {
	case domain.StatusPending:
		if err := s.retryZoneStep(ctx, &tenant); err != nil {
			return tenant, err
		}
	case domain.StatusWaitingNSChange:
		s.scheduleNameserverCheck(ctx, tenant.ID)
	case domain.StatusConfiguring:
		s.configureEdge(ctx, &tenant)
	}

	return s.tenants.GetByID(ctx, tenant.ID)
}

// retryZoneStep redoes the DNS step for a tenant that errored before its
// zone existed. Zone creation is idempotent, so a half-created zone from
// the failed run is recovered rather than duplicated.
func (s *ProvisioningService) retryZoneStep(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.IsSubdomain {
		label := strings.TrimSuffix(tenant.Domain, "."+s.platform.BaseDomain)
		if err := s.zones.EnsureCNAME(ctx, s.platform.SharedZoneID, label, s.platform.IngressHost, true); err != nil {
			s.failTenant(ctx, tenant, err)
			return err
		}
		next, err := s.tenantFSM.Apply(ctx, string(tenant.Status), domain.EventZoneReady)
		if err != nil {
			return err
		}
		if err := s.tenants.LinkZone(ctx, tenant.ID, s.platform.SharedZoneID, nil, domain.Status(next)); err != nil {
			return err
		}
		tenant.Status = domain.Status(next)
		tenant.ZoneID = s.platform.SharedZoneID
		s.configureEdge(ctx, tenant)
		return nil
	}

	zone, err := s.ensureZoneWithRecords(ctx, tenant.Domain)
	if err != nil {
		s.failTenant(ctx, tenant, err)
		return err
	}
	next, err := s.tenantFSM.Apply(ctx, string(tenant.Status), domain.EventNSInstructionsSent)
	if err != nil {
		return err
	}
	if err := s.tenants.LinkZone(ctx, tenant.ID, zone.ID, zone.Nameservers, domain.Status(next)); err != nil {
		return err
	}
	tenant.Status = domain.Status(next)
	tenant.ZoneID = zone.ID
	tenant.Nameservers = zone.Nameservers
	s.scheduleNameserverCheck(ctx, tenant.ID)
	return nil
}

// UpgradeHosting moves a dns_only tenant to full CMS hosting: platform
// CNAMEs, an edge route and fresh admin credentials. The local hosting-type
// flip is one guarded write; external calls follow it and are retryable.
func (s *ProvisioningService) UpgradeHosting(ctx context.Context, actor Actor, tenantID, notifyEmail string) (domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	if !actor.owns(tenant.CustomerID) {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	if tenant.HostingType != domain.HostingDNSOnly {
		return tenant, &domain.ConfigurationError{Reason: "tenant already has full hosting"}
	}

	// Full hosting needs traffic to flow through the platform, which needs
	// the domain delegated to the platform's DNS.
	if !tenant.IsSubdomain {
		check, err := s.zones.VerifyNameservers(ctx, tenant.ZoneID)
		if err != nil {
			return tenant, err
		}
		if !check.Active {
			return tenant, &domain.ConfigurationError{
				Reason: "domain is not using the platform's nameservers; update the delegation before enabling hosting",
			}
		}
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return domain.Tenant{}, domain.ErrProvisioningInFlight
	}
	defer release()

	tenant.HostingType = domain.HostingFull
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return tenant, err
	}
	tenant.Version++

	if err := s.zones.EnsureCNAME(ctx, tenant.ZoneID, "@", s.platform.IngressHost, true); err != nil {
		return tenant, err
	}
	if err := s.zones.EnsureCNAME(ctx, tenant.ZoneID, "www", s.platform.IngressHost, true); err != nil {
		return tenant, err
	}

	s.configureEdge(ctx, &tenant)

	if notifyEmail != "" {
		password, err := randomToken(8)
		if err == nil {
			s.scheduleMail(ctx, activationCredentials(notifyEmail, tenant.Domain, password))
		}
	}

	return s.tenants.GetByID(ctx, tenant.ID)
}

// DowngradeHosting moves a full-hosting tenant to pure DNS: the hosting
// CNAMEs and the edge route are removed, the zone itself stays.
func (s *ProvisioningService) DowngradeHosting(ctx context.Context, actor Actor, tenantID string) (domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	if !actor.owns(tenant.CustomerID) {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	if tenant.IsSubdomain {
		return tenant, &domain.ConfigurationError{Reason: "free subdomains cannot be downgraded to dns_only"}
	}
	if tenant.HostingType != domain.HostingFull {
		return tenant, &domain.ConfigurationError{Reason: "tenant already is dns_only"}
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return domain.Tenant{}, domain.ErrProvisioningInFlight
	}
	defer release()

	tenant.HostingType = domain.HostingDNSOnly
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return tenant, err
	}
	tenant.Version++

	// External deprovisioning is best-effort: it cannot be rolled into the
	// local write and a leftover record is harmless to a dns_only tenant.
	s.removeHostingRecords(ctx, tenant)
	if tenant.RouteID != "" {
		if err := s.edge.RemoveRoute(ctx, tenant.RouteID); err == nil {
			_ = s.tenants.LinkRoute(ctx, tenant.ID, "", domain.EdgeUnconfigured, tenant.Status)
		}
	}

	return s.tenants.GetByID(ctx, tenant.ID)
}

// removeHostingRecords deletes the platform CNAMEs added for hosting.
func (s *ProvisioningService) removeHostingRecords(ctx context.Context, tenant domain.Tenant) {
	records, err := s.zones.ListRecords(ctx, tenant.ZoneID)
	if err != nil {
		return
	}
	for _, rec := range records {
		if rec.Type != "CNAME" || !strings.EqualFold(strings.TrimSuffix(rec.Content, "."), s.platform.IngressHost) {
			continue
		}
		name := strings.TrimSuffix(rec.Name, ".")
		if strings.EqualFold(name, tenant.Domain) || strings.EqualFold(name, "www."+tenant.Domain) {
			_ = s.zones.DeleteRecord(ctx, tenant.ZoneID, rec.ID)
		}
	}
}

// DeleteTenant removes a tenant and best-effort deprovisions its edge
// route. Orders and transfers stay behind as the audit trail.
func (s *ProvisioningService) DeleteTenant(ctx context.Context, actor Actor, tenantID string) error {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !actor.owns(tenant.CustomerID) {
		return domain.ErrTenantNotFound
	}

	release, ok := s.locks.acquire(tenant.ID)
	if !ok {
		return domain.ErrProvisioningInFlight
	}
	defer release()

	if err := s.applyTenantEvent(ctx, &tenant, domain.EventDelete, ""); err != nil {
		return err
	}

	if tenant.RouteID != "" {
		_ = s.edge.RemoveRoute(ctx, tenant.RouteID)
	}

	if err := s.tenants.Delete(ctx, tenant.ID); err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}
	tenant.Status = domain.StatusDeleted
	s.publish(ctx, domain.EventDeletionComplete, tenant)
	return nil
}

// activationCredentials renders the admin-account email sent after a
// hosting upgrade.
func activationCredentials(to, domainName, password string) domain.Mail {
	return domain.Mail{
		To:      to,
		Subject: "Your site on " + domainName + " is ready",
		Body: "CMS hosting is now enabled for " + domainName + ".\n\n" +
			"Admin login: https://" + domainName + "/admin\n" +
			"Username: admin\n" +
			"Password: " + password + "\n\n" +
			"Change the password after your first login.\n",
	}
}
