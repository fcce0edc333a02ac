package app

import (
	"context"
	"fmt"

	"github.com/caimari/musedock/internal/domain"
)

// domainOrderFor loads an order and checks ownership and that the domain
// is actually registered through the platform.
func (s *ProvisioningService) domainOrderFor(ctx context.Context, actor Actor, orderID string) (domain.DomainOrder, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return domain.DomainOrder{}, err
	}
	if !actor.owns(order.CustomerID) {
		return domain.DomainOrder{}, domain.ErrOrderNotFound
	}
	if order.RegistrarDomainID == 0 {
		return domain.DomainOrder{}, &domain.ConfigurationError{Reason: "domain is not registered yet"}
	}
	return order, nil
}

// GetOrder returns a domain order by id, enforcing ownership.
func (s *ProvisioningService) GetOrder(ctx context.Context, actor Actor, orderID string) (domain.DomainOrder, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return domain.DomainOrder{}, err
	}
	if !actor.owns(order.CustomerID) {
		return domain.DomainOrder{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns the actor's domain orders.
func (s *ProvisioningService) ListOrders(ctx context.Context, actor Actor) ([]domain.DomainOrder, error) {
	return s.orders.ListByCustomer(ctx, actor.CustomerID)
}

// GetTransfer returns a domain transfer by id, enforcing ownership.
func (s *ProvisioningService) GetTransfer(ctx context.Context, actor Actor, transferID string) (domain.DomainTransfer, error) {
	transfer, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return domain.DomainTransfer{}, err
	}
	if !actor.owns(transfer.CustomerID) {
		return domain.DomainTransfer{}, domain.ErrTransferNotFound
	}
	return transfer, nil
}

// UpdateDomainNameservers replaces the registrar-side nameserver set.
func (s *ProvisioningService) UpdateDomainNameservers(ctx context.Context, actor Actor, orderID string, nameservers []string) error {
	if len(nameservers) < 2 {
		return &domain.ValidationError{Field: "nameservers", Reason: "at least two nameservers are required"}
	}
	order, err := s.domainOrderFor(ctx, actor, orderID)
	if err != nil {
		return err
	}
	return s.registrar.UpdateNameservers(ctx, order.RegistrarDomainID, nameservers)
}

// SetDomainLock enables or disables the registrar transfer lock.
func (s *ProvisioningService) SetDomainLock(ctx context.Context, actor Actor, orderID string, locked bool) error {
	order, err := s.domainOrderFor(ctx, actor, orderID)
	if err != nil {
		return err
	}
	return s.registrar.SetLock(ctx, order.RegistrarDomainID, locked)
}

// GetAuthCode fetches the domain's transfer authorization code. The code is
// returned to the caller and never persisted.
func (s *ProvisioningService) GetAuthCode(ctx context.Context, actor Actor, orderID string) (string, error) {
	order, err := s.domainOrderFor(ctx, actor, orderID)
	if err != nil {
		return "", err
	}
	return s.registrar.AuthCode(ctx, order.RegistrarDomainID)
}

// RegenerateAuthCode invalidates and replaces the authorization code.
func (s *ProvisioningService) RegenerateAuthCode(ctx context.Context, actor Actor, orderID string) (string, error) {
	order, err := s.domainOrderFor(ctx, actor, orderID)
	if err != nil {
		return "", err
	}
	return s.registrar.ResetAuthCode(ctx, order.RegistrarDomainID)
}

// SetAutoRenew sets the registrar renewal mode for a domain.
func (s *ProvisioningService) SetAutoRenew(ctx context.Context, actor Actor, orderID, mode string) error {
	switch mode {
	case "on", "off", "default":
	default:
		return &domain.ValidationError{Field: "mode", Reason: `must be "on", "off" or "default"`}
	}
	order, err := s.domainOrderFor(ctx, actor, orderID)
	if err != nil {
		return err
	}
	return s.registrar.SetAutoRenew(ctx, order.RegistrarDomainID, mode)
}

// SetWhoisPrivacy toggles WHOIS privacy. An unsigned privacy contract at
// the registrar is passed through as its own error kind so the caller can
// tell the customer what to do, instead of a generic failure.
func (s *ProvisioningService) SetWhoisPrivacy(ctx context.Context, actor Actor, orderID string, enabled bool) error {
	order, err := s.domainOrderFor(ctx, actor, orderID)
	if err != nil {
		return err
	}
	return s.registrar.SetWhoisPrivacy(ctx, order.RegistrarDomainID, enabled)
}

// CreateContact stores a registrant contact for later registrations.
func (s *ProvisioningService) CreateContact(ctx context.Context, actor Actor, contact domain.DomainContact) (domain.DomainContact, error) {
	if contact.Email == "" {
		return domain.DomainContact{}, &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	if contact.FirstName == "" && contact.CompanyName == "" {
		return domain.DomainContact{}, &domain.ValidationError{Field: "name", Reason: "either a personal or a company name is required"}
	}

	id, err := newID(prefixContact)
	if err != nil {
		return domain.DomainContact{}, fmt.Errorf("generating contact id: %w", err)
	}

	stored := domain.NewDomainContact(id, actor.CustomerID)
	stored.FirstName = contact.FirstName
	stored.LastName = contact.LastName
	stored.CompanyName = contact.CompanyName
	stored.Email = contact.Email
	stored.Phone = contact.Phone
	stored.Street = contact.Street
	stored.Number = contact.Number
	stored.ZipCode = contact.ZipCode
	stored.City = contact.City
	stored.State = contact.State
	stored.CountryISO = contact.CountryISO
	stored.IsDefault = contact.IsDefault

	if err := s.contacts.Create(ctx, stored); err != nil {
		return domain.DomainContact{}, err
	}
	return stored, nil
}

// ListContacts returns the actor's stored contacts.
func (s *ProvisioningService) ListContacts(ctx context.Context, actor Actor) ([]domain.DomainContact, error) {
	return s.contacts.ListByCustomer(ctx, actor.CustomerID)
}

// DeleteContact removes a contact unless its registrar handle is still
// referenced by a live order or transfer.
func (s *ProvisioningService) DeleteContact(ctx context.Context, actor Actor, contactID string) error {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if !actor.owns(contact.CustomerID) {
		return domain.ErrContactNotFound
	}

	if contact.Handle != "" {
		inUse, err := s.contacts.HandleInUse(ctx, contact.Handle)
		if err != nil {
			return err
		}
		if inUse {
			return &domain.ContactInUseError{ContactID: contact.ID, Handle: contact.Handle}
		}
	}

	return s.contacts.Delete(ctx, contactID)
}
