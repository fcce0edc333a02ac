package domain_test

import (
	"testing"
	"time"

	"github.com/caimari/musedock/internal/domain"
)

func TestNewTenant(t *testing.T) {
	before := time.Now().UTC()
	tenant := domain.NewTenant("id-1", "cust-1", "acme.musedock.net", true, "pro", domain.HostingFull)
	after := time.Now().UTC()

	if tenant.ID != "id-1" {
		t.Errorf("ID = %q, want %q", tenant.ID, "id-1")
	}
	if tenant.CustomerID != "cust-1" {
		t.Errorf("CustomerID = %q, want %q", tenant.CustomerID, "cust-1")
	}
	if tenant.Domain != "acme.musedock.net" {
		t.Errorf("Domain = %q, want %q", tenant.Domain, "acme.musedock.net")
	}
	if !tenant.IsSubdomain {
		t.Error("IsSubdomain = false, want true")
	}
	if tenant.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", tenant.Status, domain.StatusPending)
	}
	if tenant.EdgeStatus != domain.EdgeUnconfigured {
		t.Errorf("EdgeStatus = %q, want %q", tenant.EdgeStatus, domain.EdgeUnconfigured)
	}
	if tenant.HostingType != domain.HostingFull {
		t.Errorf("HostingType = %q, want %q", tenant.HostingType, domain.HostingFull)
	}
	if tenant.Version != 1 {
		t.Errorf("Version = %d, want 1", tenant.Version)
	}
	if tenant.CreatedAt.Before(before) || tenant.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want between %v and %v", tenant.CreatedAt, before, after)
	}
	if tenant.UpdatedAt != tenant.CreatedAt {
		t.Errorf("UpdatedAt should equal CreatedAt on new tenant")
	}
}

func TestTransitions_AllEventsHaveEntries(t *testing.T) {
	events := []domain.Event{
		domain.EventZoneReady,
		domain.EventNSInstructionsSent,
		domain.EventNSVerified,
		domain.EventEdgeConfigured,
		domain.EventProvisioningFailed,
		domain.EventRetryZone,
		domain.EventRetryNSVerification,
		domain.EventRetryEdge,
		domain.EventDelete,
		domain.EventDeletionComplete,
	}

	for _, event := range events {
		found := false
		for _, tr := range domain.Transitions {
			if tr.Event == string(event) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("event %q has no transition defined", event)
		}
	}
}

func TestTransitions_ValidPaths(t *testing.T) {
	// Walk both happy paths: subdomain pending → configuring → active, and
	// custom domain pending → waiting_ns_change → configuring → active,
	// plus failure, retry and deletion.
	cases := []struct {
		event domain.Event
		src   domain.Status
		dst   domain.Status
	}{
		{domain.EventZoneReady, domain.StatusPending, domain.StatusConfiguring},
		{domain.EventNSInstructionsSent, domain.StatusPending, domain.StatusWaitingNSChange},
		{domain.EventNSVerified, domain.StatusWaitingNSChange, domain.StatusConfiguring},
		{domain.EventEdgeConfigured, domain.StatusConfiguring, domain.StatusActive},
		{domain.EventProvisioningFailed, domain.StatusConfiguring, domain.StatusError},
		{domain.EventRetryZone, domain.StatusError, domain.StatusPending},
		{domain.EventRetryNSVerification, domain.StatusError, domain.StatusWaitingNSChange},
		{domain.EventRetryEdge, domain.StatusError, domain.StatusConfiguring},
		{domain.EventDelete, domain.StatusActive, domain.StatusDeleting},
		{domain.EventDelete, domain.StatusError, domain.StatusDeleting},
		{domain.EventDeletionComplete, domain.StatusDeleting, domain.StatusDeleted},
	}

	for _, tc := range cases {
		found := false
		for _, tr := range domain.Transitions {
			if tr.Event == string(tc.event) && tr.Src == string(tc.src) && tr.Dst == string(tc.dst) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing transition: %q from %q → %q", tc.event, tc.src, tc.dst)
		}
	}
}

func TestTransitions_InvalidPaths(t *testing.T) {
	// These transitions must NOT exist.
	invalid := []struct {
		event domain.Event
		src   domain.Status
	}{
		{domain.EventEdgeConfigured, domain.StatusPending},
		{domain.EventNSVerified, domain.StatusPending},
		{domain.EventZoneReady, domain.StatusActive},
		{domain.EventRetryZone, domain.StatusActive},
		{domain.EventProvisioningFailed, domain.StatusActive},
		{domain.EventDelete, domain.StatusDeleted},
		{domain.EventDeletionComplete, domain.StatusActive},
	}

	for _, tc := range invalid {
		for _, tr := range domain.Transitions {
			if tr.Event == string(tc.event) && tr.Src == string(tc.src) {
				t.Errorf("unexpected transition: %q from %q should not exist", tc.event, tc.src)
			}
		}
	}
}

func TestRetryEvent(t *testing.T) {
	cases := []struct {
		name   string
		tenant domain.Tenant
		want   domain.Event
	}{
		{
			name:   "no zone yet",
			tenant: domain.Tenant{IsSubdomain: false},
			want:   domain.EventRetryZone,
		},
		{
			name: "custom domain waiting on delegation",
			tenant: domain.Tenant{
				ZoneID:      "z1",
				Nameservers: []string{"ns1.example.net", "ns2.example.net"},
			},
			want: domain.EventRetryNSVerification,
		},
		{
			name: "subdomain with zone but no route",
			tenant: domain.Tenant{
				IsSubdomain: true,
				ZoneID:      "shared",
			},
			want: domain.EventRetryEdge,
		},
		{
			name: "custom domain already activated once",
			tenant: domain.Tenant{
				ZoneID:      "z1",
				Nameservers: []string{"ns1.example.net"},
				ActivatedAt: timePtr(time.Now()),
			},
			want: domain.EventRetryEdge,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tenant.RetryEvent(); got != tc.want {
				t.Errorf("RetryEvent() = %q, want %q", got, tc.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
