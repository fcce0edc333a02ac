package domain

import "time"

// DomainContact is a reusable registrant identity stored locally and
// mirrored at the registrar as a handle. A contact referenced by any
// non-terminal order or transfer cannot be deleted.
type DomainContact struct {
	ID         string
	CustomerID string

	FirstName   string
	LastName    string
	CompanyName string
	Email       string
	Phone       string

	Street     string
	Number     string
	ZipCode    string
	City       string
	State      string
	CountryISO string

	// Handle is the registrar-side identifier for this contact.
	Handle    string
	IsDefault bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDomainContact creates a local contact not yet mirrored at the registrar.
func NewDomainContact(id, customerID string) DomainContact {
	now := time.Now().UTC()
	return DomainContact{
		ID:         id,
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// FullName returns the contact's display name.
func (c DomainContact) FullName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.FirstName + " " + c.LastName
}
