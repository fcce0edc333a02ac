package domain

import "time"

// Status represents the provisioning state of a tenant.
type Status string

const (
	StatusPending         Status = "pending"
	StatusWaitingNSChange Status = "waiting_ns_change"
	StatusConfiguring     Status = "configuring"
	StatusActive          Status = "active"
	StatusError           Status = "error"
	StatusDeleting        Status = "deleting"
	StatusDeleted         Status = "deleted"
)

// EdgeStatus represents the state of a tenant's reverse-proxy route.
type EdgeStatus string

const (
	EdgeUnconfigured EdgeStatus = "unconfigured"
	EdgeActive       EdgeStatus = "active"
	EdgeError        EdgeStatus = "error"
)

// HostingType distinguishes pure DNS hosting from full CMS hosting.
type HostingType string

const (
	HostingDNSOnly HostingType = "dns_only"
	HostingFull    HostingType = "full_hosting"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventZoneReady           Event = "zone_ready"
	EventNSInstructionsSent  Event = "ns_instructions_sent"
	EventNSVerified          Event = "ns_verified"
	EventEdgeConfigured      Event = "edge_configured"
	EventProvisioningFailed  Event = "provisioning_failed"
	EventRetryZone           Event = "retry_zone"
	EventRetryNSVerification Event = "retry_ns_verification"
	EventRetryEdge           Event = "retry_edge"
	EventDelete              Event = "delete"
	EventDeletionComplete    Event = "deletion_complete"
)

// Transition defines a valid state change: an event moves an entity from Src
// to Dst. Fields are plain strings so the same shape serves the tenant, order
// and transfer machines.
type Transition struct {
	Event string
	Src   string
	Dst   string
}

// Transitions defines all valid state changes in the tenant provisioning
// lifecycle. The three retry events re-enter the step that failed: back to
// pending when the zone was never created, back to waiting_ns_change when
// nameserver verification is outstanding, back to configuring when only the
// edge route is missing. This is domain knowledge consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: string(EventZoneReady), Src: string(StatusPending), Dst: string(StatusConfiguring)},
	{Event: string(EventNSInstructionsSent), Src: string(StatusPending), Dst: string(StatusWaitingNSChange)},
	{Event: string(EventNSVerified), Src: string(StatusWaitingNSChange), Dst: string(StatusConfiguring)},
	{Event: string(EventEdgeConfigured), Src: string(StatusConfiguring), Dst: string(StatusActive)},
	{Event: string(EventProvisioningFailed), Src: string(StatusPending), Dst: string(StatusError)},
	{Event: string(EventProvisioningFailed), Src: string(StatusWaitingNSChange), Dst: string(StatusError)},
	{Event: string(EventProvisioningFailed), Src: string(StatusConfiguring), Dst: string(StatusError)},
	{Event: string(EventRetryZone), Src: string(StatusError), Dst: string(StatusPending)},
	{Event: string(EventRetryNSVerification), Src: string(StatusError), Dst: string(StatusWaitingNSChange)},
	{Event: string(EventRetryEdge), Src: string(StatusError), Dst: string(StatusConfiguring)},
	{Event: string(EventDelete), Src: string(StatusPending), Dst: string(StatusDeleting)},
	{Event: string(EventDelete), Src: string(StatusWaitingNSChange), Dst: string(StatusDeleting)},
	{Event: string(EventDelete), Src: string(StatusConfiguring), Dst: string(StatusDeleting)},
	{Event: string(EventDelete), Src: string(StatusActive), Dst: string(StatusDeleting)},
	{Event: string(EventDelete), Src: string(StatusError), Dst: string(StatusDeleting)},
	{Event: string(EventDeletionComplete), Src: string(StatusDeleting), Dst: string(StatusDeleted)},
}

// Tenant is the core domain entity: one customer-owned hosted site/domain
// instance on the platform, together with the external ids created for it at
// the registrar, the DNS provider and the edge router.
type Tenant struct {
	ID          string
	CustomerID  string
	Domain      string
	IsSubdomain bool
	Status      Status
	Plan        string
	HostingType HostingType

	// External references, populated as provisioning progresses.
	RegistrarDomainID int64
	ZoneID            string
	Nameservers       []string
	RouteID           string
	EdgeStatus        EdgeStatus

	EmailRoutingEnabled bool

	// Diagnostics from the last failed (or partially failed) external call.
	Diagnostic     string
	EdgeDiagnostic string

	// Version increments on every update; stale writes are rejected.
	Version int64

	ZoneCreatedAt  *time.Time
	RouteCreatedAt *time.Time
	ActivatedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTenant creates a tenant in the initial "pending" state.
func NewTenant(id, customerID, domain string, isSubdomain bool, plan string, hosting HostingType) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:          id,
		CustomerID:  customerID,
		Domain:      domain,
		IsSubdomain: isSubdomain,
		Status:      StatusPending,
		Plan:        plan,
		HostingType: hosting,
		EdgeStatus:  EdgeUnconfigured,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RetryEvent returns the retry event that re-enters the step this tenant
// failed at, derived from which external ids were already secured.
func (t Tenant) RetryEvent() Event {
	switch {
	case t.ZoneID == "":
		return EventRetryZone
	case !t.IsSubdomain && t.RouteID == "" && len(t.Nameservers) > 0 && t.ActivatedAt == nil:
		return EventRetryNSVerification
	default:
		return EventRetryEdge
	}
}
