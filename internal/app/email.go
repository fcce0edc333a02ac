package app

import (
	"context"

	"github.com/caimari/musedock/internal/domain"
)

// tenantWithZone loads a tenant, enforcing ownership and that it has a
// dedicated zone (email routing is not available on the shared zone).
func (s *ProvisioningService) tenantWithZone(ctx context.Context, actor Actor, tenantID string) (domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	if !actor.owns(tenant.CustomerID) {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	if tenant.IsSubdomain || tenant.ZoneID == "" {
		return domain.Tenant{}, &domain.ConfigurationError{Reason: "email routing requires a custom domain with its own zone"}
	}
	return tenant, nil
}

// EnableEmailRouting turns on email routing for the tenant's zone.
func (s *ProvisioningService) EnableEmailRouting(ctx context.Context, actor Actor, tenantID string) (domain.Tenant, error) {
	tenant, err := s.tenantWithZone(ctx, actor, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}

	if err := s.zones.EnableEmailRouting(ctx, tenant.ZoneID); err != nil {
		return tenant, err
	}

	tenant.EmailRoutingEnabled = true
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return tenant, err
	}
	return s.tenants.GetByID(ctx, tenant.ID)
}

// DisableEmailRouting turns off email routing for the tenant's zone.
func (s *ProvisioningService) DisableEmailRouting(ctx context.Context, actor Actor, tenantID string) (domain.Tenant, error) {
	tenant, err := s.tenantWithZone(ctx, actor, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}

	if err := s.zones.DisableEmailRouting(ctx, tenant.ZoneID); err != nil {
		return tenant, err
	}

	tenant.EmailRoutingEnabled = false
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return tenant, err
	}
	return s.tenants.GetByID(ctx, tenant.ID)
}

// ListForwardingRules returns the tenant's email forwarding rules.
func (s *ProvisioningService) ListForwardingRules(ctx context.Context, actor Actor, tenantID string) ([]domain.ForwardingRule, error) {
	tenant, err := s.tenantWithZone(ctx, actor, tenantID)
	if err != nil {
		return nil, err
	}
	return s.zones.ListForwardingRules(ctx, tenant.ZoneID)
}

// CreateForwardingRule forwards mail for one address on the tenant's
// domain to a destination mailbox.
func (s *ProvisioningService) CreateForwardingRule(ctx context.Context, actor Actor, tenantID, from, to string) (domain.ForwardingRule, error) {
	if from == "" || to == "" {
		return domain.ForwardingRule{}, &domain.ValidationError{Field: "rule", Reason: "both source and destination addresses are required"}
	}
	tenant, err := s.tenantWithZone(ctx, actor, tenantID)
	if err != nil {
		return domain.ForwardingRule{}, err
	}
	if !tenant.EmailRoutingEnabled {
		return domain.ForwardingRule{}, &domain.ConfigurationError{Reason: "enable email routing before creating forwarding rules"}
	}
	return s.zones.CreateForwardingRule(ctx, tenant.ZoneID, from, to)
}

// DeleteForwardingRule removes one forwarding rule.
func (s *ProvisioningService) DeleteForwardingRule(ctx context.Context, actor Actor, tenantID, ruleID string) error {
	tenant, err := s.tenantWithZone(ctx, actor, tenantID)
	if err != nil {
		return err
	}
	return s.zones.DeleteForwardingRule(ctx, tenant.ZoneID, ruleID)
}

// UpdateCatchAll configures the tenant's catch-all delivery.
func (s *ProvisioningService) UpdateCatchAll(ctx context.Context, actor Actor, tenantID, to string, enabled bool) error {
	tenant, err := s.tenantWithZone(ctx, actor, tenantID)
	if err != nil {
		return err
	}
	if !tenant.EmailRoutingEnabled {
		return &domain.ConfigurationError{Reason: "enable email routing before configuring the catch-all"}
	}
	return s.zones.UpdateCatchAll(ctx, tenant.ZoneID, to, enabled)
}
