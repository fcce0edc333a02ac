package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/caimari/musedock/internal/domain"
)

func TestDomainConflictError_Error(t *testing.T) {
	err := &domain.DomainConflictError{Domain: "acme.com"}
	want := `domain "acme.com" is already in use`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventEdgeConfigured,
		Current: string(domain.StatusPending),
	}
	want := `event "edge_configured" is not valid from state "pending"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &domain.ValidationError{Field: "label", Reason: "must not be empty"}
	want := "invalid label: must not be empty"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExternalError_Kinds(t *testing.T) {
	already := &domain.ExternalError{
		System: domain.SystemDNS,
		Kind:   domain.KindAlreadyExists,
		Code:   "1061",
	}
	if !domain.IsAlreadyExists(already) {
		t.Error("IsAlreadyExists() = false for already_exists error")
	}
	if domain.IsWppContractUnsigned(already) {
		t.Error("IsWppContractUnsigned() = true for already_exists error")
	}

	wpp := &domain.ExternalError{
		System: domain.SystemRegistrar,
		Kind:   domain.KindWppContractUnsigned,
		Code:   "2001",
	}
	if !domain.IsWppContractUnsigned(wpp) {
		t.Error("IsWppContractUnsigned() = false for wpp_contract_unsigned error")
	}

	down := &domain.ExternalError{
		System: domain.SystemEdge,
		Kind:   domain.KindUnavailable,
	}
	if !domain.IsUnavailable(down) {
		t.Error("IsUnavailable() = false for unavailable error")
	}
}

func TestExternalError_Wrapped(t *testing.T) {
	inner := &domain.ExternalError{
		System: domain.SystemDNS,
		Kind:   domain.KindAlreadyExists,
	}
	wrapped := fmt.Errorf("creating zone: %w", inner)

	if !domain.IsAlreadyExists(wrapped) {
		t.Error("IsAlreadyExists() should see through wrapping")
	}

	var ext *domain.ExternalError
	if !errors.As(wrapped, &ext) {
		t.Fatal("errors.As failed on wrapped ExternalError")
	}
	if ext.System != domain.SystemDNS {
		t.Errorf("System = %q, want %q", ext.System, domain.SystemDNS)
	}
}

func TestContactInUseError_Error(t *testing.T) {
	err := &domain.ContactInUseError{ContactID: "c1", Handle: "AB123456-ES"}
	want := "contact c1 (handle AB123456-ES) is referenced by an active order"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
