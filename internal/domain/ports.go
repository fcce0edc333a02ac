package domain

import (
	"context"
	"time"
)

// TenantRepository defines the persistence contract for tenants.
//
// Status mutations are single-row, single-statement updates: every external
// id is linked in the same statement as the status change that required it,
// so a crash between statements can never leave a tenant claiming a step it
// has no id for.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetByDomain(ctx context.Context, domain string) (Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)

	// Update writes the full row iff the stored version equals
	// tenant.Version, then increments it. Returns ErrStaleTenant otherwise.
	Update(ctx context.Context, tenant Tenant) error

	// SetStatus updates status and diagnostic in one statement.
	SetStatus(ctx context.Context, id string, status Status, diagnostic string) error

	// LinkZone stores the zone id and nameservers together with the status
	// they unlocked.
	LinkZone(ctx context.Context, id string, zoneID string, nameservers []string, status Status) error

	// LinkRoute stores the edge route id together with the edge status and
	// tenant status it unlocked.
	LinkRoute(ctx context.Context, id string, routeID string, edgeStatus EdgeStatus, status Status) error

	// SetEdgeStatus updates the edge status and its diagnostic only, leaving
	// the tenant status untouched.
	SetEdgeStatus(ctx context.Context, id string, edgeStatus EdgeStatus, diagnostic string) error

	Delete(ctx context.Context, id string) error
}

// ListFilter holds optional criteria for listing tenants.
type ListFilter struct {
	CustomerID *string
	Status     *Status
	Limit      int
	Offset     int
}

// OrderRepository defines the persistence contract for domain orders.
type OrderRepository interface {
	Create(ctx context.Context, order DomainOrder) error
	GetByID(ctx context.Context, id string) (DomainOrder, error)
	GetOpenByDomain(ctx context.Context, fqdn string) (DomainOrder, error)
	ListByCustomer(ctx context.Context, customerID string) ([]DomainOrder, error)
	Update(ctx context.Context, order DomainOrder) error
}

// TransferRepository defines the persistence contract for domain transfers.
type TransferRepository interface {
	Create(ctx context.Context, transfer DomainTransfer) error
	GetByID(ctx context.Context, id string) (DomainTransfer, error)
	ListByCustomer(ctx context.Context, customerID string) ([]DomainTransfer, error)
	Update(ctx context.Context, transfer DomainTransfer) error
}

// ContactRepository defines the persistence contract for domain contacts.
type ContactRepository interface {
	Create(ctx context.Context, contact DomainContact) error
	GetByID(ctx context.Context, id string) (DomainContact, error)
	GetDefault(ctx context.Context, customerID string) (DomainContact, error)
	ListByCustomer(ctx context.Context, customerID string) ([]DomainContact, error)
	Update(ctx context.Context, contact DomainContact) error
	Delete(ctx context.Context, id string) error

	// HandleInUse reports whether any order or transfer still references
	// the given registrar handle. Only failed ones release it; active
	// orders and completed transfers are live domains registered to it.
	HandleInUse(ctx context.Context, handle string) (bool, error)
}

// DomainOffer is one result of a registrar availability search.
type DomainOffer struct {
	Domain    string
	Available bool
	Price     float64
	Currency  string
}

// RegisterDomainRequest carries everything the registrar needs to register
// a domain.
type RegisterDomainRequest struct {
	Name        string
	Extension   string
	OwnerHandle string
	Nameservers []string
	Period      int // years
	AutoRenew   string
	Comments    string
}

// RegisteredDomain is the registrar's view of a completed registration.
type RegisteredDomain struct {
	RegistrarID int64
	ExpiresAt   time.Time
}

// TransferDomainRequest carries everything the registrar needs to start an
// inbound transfer. AuthCode is used for the call and discarded.
type TransferDomainRequest struct {
	Name        string
	Extension   string
	AuthCode    string
	OwnerHandle string
	Nameservers []string
	Period      int
}

// StartedTransfer is the registrar's acknowledgement of a transfer request.
type StartedTransfer struct {
	TransferID int64
}

// Registrar defines the thin typed contract over the domain registrar's API.
type Registrar interface {
	Search(ctx context.Context, query string) ([]DomainOffer, error)
	Register(ctx context.Context, req RegisterDomainRequest) (RegisteredDomain, error)
	Transfer(ctx context.Context, req TransferDomainRequest) (StartedTransfer, error)

	// GetOrCreateContact mirrors the contact at the registrar and returns
	// the handle, reusing an existing equivalent handle when one exists.
	GetOrCreateContact(ctx context.Context, contact DomainContact) (string, error)

	UpdateNameservers(ctx context.Context, registrarID int64, nameservers []string) error
	SetLock(ctx context.Context, registrarID int64, locked bool) error
	AuthCode(ctx context.Context, registrarID int64) (string, error)
	ResetAuthCode(ctx context.Context, registrarID int64) (string, error)
	SetAutoRenew(ctx context.Context, registrarID int64, mode string) error
	SetWhoisPrivacy(ctx context.Context, registrarID int64, enabled bool) error
}

// Zone is the DNS provider's managed configuration unit for one domain.
type Zone struct {
	ID          string
	Name        string
	Status      string
	Nameservers []string
}

// ZoneRecord is one DNS record inside a zone.
type ZoneRecord struct {
	ID      string
	Type    string
	Name    string
	Content string
	TTL     int
	Proxied bool
}

// ForwardingRule is one email-routing rule inside a zone.
type ForwardingRule struct {
	ID      string
	From    string
	To      string
	Enabled bool
}

// NameserverCheck is the result of asking the DNS provider whether it is
// authoritative for a zone yet.
type NameserverCheck struct {
	Active bool
	Status string
}

// ZoneManager defines the thin typed contract over the DNS provider's API.
type ZoneManager interface {
	// CreateZone is idempotent: when the zone already exists at the
	// provider it is looked up and returned instead of failing.
	CreateZone(ctx context.Context, domain string) (Zone, error)
	GetZone(ctx context.Context, zoneID string) (Zone, error)
	DeleteZone(ctx context.Context, zoneID string) error

	ListRecords(ctx context.Context, zoneID string) ([]ZoneRecord, error)
	CreateRecord(ctx context.Context, zoneID string, record ZoneRecord) (ZoneRecord, error)
	UpdateRecord(ctx context.Context, zoneID string, record ZoneRecord) error
	DeleteRecord(ctx context.Context, zoneID, recordID string) error

	// EnsureCNAME creates a proxied/unproxied CNAME unless an equivalent
	// record already exists.
	EnsureCNAME(ctx context.Context, zoneID, name, target string, proxied bool) error

	EnableEmailRouting(ctx context.Context, zoneID string) error
	DisableEmailRouting(ctx context.Context, zoneID string) error
	ListForwardingRules(ctx context.Context, zoneID string) ([]ForwardingRule, error)
	CreateForwardingRule(ctx context.Context, zoneID, from, to string) (ForwardingRule, error)
	DeleteForwardingRule(ctx context.Context, zoneID, ruleID string) error
	UpdateCatchAll(ctx context.Context, zoneID, to string, enabled bool) error

	VerifyNameservers(ctx context.Context, zoneID string) (NameserverCheck, error)
}

// DomainProbe is the result of a synthetic HTTPS request against a live
// domain, used to confirm the edge serves it with a valid certificate.
type DomainProbe struct {
	Responds bool
	SSLValid bool
	HTTPCode int
}

// EdgeRouter defines the thin typed contract over the reverse proxy's
// admin API.
type EdgeRouter interface {
	AddRoute(ctx context.Context, domain string, includeWWW bool) (string, error)
	RemoveRoute(ctx context.Context, routeID string) error
	RouteExists(ctx context.Context, routeID string) (bool, error)
	VerifyDomain(ctx context.Context, domain string) (DomainProbe, error)

	// Available reports whether the admin API is reachable; callers degrade
	// gracefully when it is not.
	Available(ctx context.Context) bool
}

// Mail is one outbound message. Sending is fire-and-forget from the
// orchestrator's point of view.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer defines the outbound email contract.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// TaskScheduler enqueues background work so provisioning runs never block
// a request on external polling. Implementations must be durable: a
// scheduled task survives a process restart.
type TaskScheduler interface {
	// ScheduleEdgeVerification polls the tenant's live domain for TLS
	// readiness on a bounded retry schedule.
	ScheduleEdgeVerification(ctx context.Context, tenantID string) error

	// ScheduleNameserverCheck polls the DNS provider until it reports
	// itself authoritative for the tenant's zone, bounded.
	ScheduleNameserverCheck(ctx context.Context, tenantID string) error

	// ScheduleMail delivers an email asynchronously; delivery failure
	// never affects provisioning outcome.
	ScheduleMail(ctx context.Context, mail Mail) error
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, tenant Tenant) error
}

// TransitionValidator checks lifecycle transitions. Current and the returned
// destination are machine-specific statuses passed as strings so one
// validator implementation serves the tenant, order and transfer machines.
type TransitionValidator interface {
	Apply(ctx context.Context, current string, event Event) (string, error)
}
