package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrOrderNotFound    = errors.New("domain order not found")
	ErrTransferNotFound = errors.New("domain transfer not found")
	ErrContactNotFound  = errors.New("domain contact not found")

	// ErrStaleTenant is returned when an update carries a version that no
	// longer matches the stored row (another run won the race).
	ErrStaleTenant = errors.New("tenant was modified concurrently")

	// ErrProvisioningInFlight is returned when a provisioning run is already
	// holding the tenant's orchestration lock.
	ErrProvisioningInFlight = errors.New("a provisioning run is already in progress for this tenant")
)

// DomainConflictError is returned when a domain is already taken by an
// active tenant or a non-terminal order.
type DomainConflictError struct {
	Domain string
}

func (e *DomainConflictError) Error() string {
	return fmt.Sprintf("domain %q is already in use", e.Domain)
}

// ContactInUseError is returned when deleting a contact whose handle is
// still referenced by a non-terminal order or transfer.
type ContactInUseError struct {
	ContactID string
	Handle    string
}

func (e *ContactInUseError) Error() string {
	return fmt.Sprintf("contact %s (handle %s) is referenced by an active order", e.ContactID, e.Handle)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// ValidationError is returned for malformed input before any external call
// is made; it guarantees no side effects happened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConfigurationError is returned when a precondition on the tenant's current
// configuration is not met, e.g. a CMS upgrade while the domain is not using
// the platform's nameservers.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// ExternalSystem identifies which vendor API an ExternalError came from.
type ExternalSystem string

const (
	SystemRegistrar ExternalSystem = "registrar"
	SystemDNS       ExternalSystem = "dns"
	SystemEdge      ExternalSystem = "edge"
	SystemMail      ExternalSystem = "mail"
)

// ExternalErrorKind classifies vendor failures the orchestrator reacts to.
// Adapters map vendor error codes onto these kinds so control flow never
// depends on vendor message wording.
type ExternalErrorKind string

const (
	// KindGeneric is any vendor failure without a recovery path.
	KindGeneric ExternalErrorKind = "generic"
	// KindAlreadyExists means the resource is already present at the vendor;
	// the orchestrator treats this as success-with-recovery.
	KindAlreadyExists ExternalErrorKind = "already_exists"
	// KindWppContractUnsigned is the registrar's refusal to toggle WHOIS
	// privacy before the privacy contract is signed; it is surfaced to the
	// customer as an actionable error, not a generic failure.
	KindWppContractUnsigned ExternalErrorKind = "wpp_contract_unsigned"
	// KindUnavailable means the vendor API could not be reached at all
	// (network error, circuit breaker open).
	KindUnavailable ExternalErrorKind = "unavailable"
)

// ExternalError wraps a failure from one of the vendor APIs.
type ExternalError struct {
	System  ExternalSystem
	Kind    ExternalErrorKind
	Code    string
	Message string
}

func (e *ExternalError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code %s)", e.System, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.System, e.Message)
}

// IsAlreadyExists reports whether err is a vendor "already exists" condition.
func IsAlreadyExists(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext) && ext.Kind == KindAlreadyExists
}

// IsWppContractUnsigned reports whether err is the registrar's unsigned
// WHOIS-privacy-contract refusal.
func IsWppContractUnsigned(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext) && ext.Kind == KindWppContractUnsigned
}

// IsUnavailable reports whether err means the vendor API was unreachable.
func IsUnavailable(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext) && ext.Kind == KindUnavailable
}
