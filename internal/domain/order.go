package domain

import "time"

// OrderStatus represents the state of a domain registration order.
// Transitions are monotonic: an order never leaves a terminal state.
type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderRegistered OrderStatus = "registered"
	OrderActive     OrderStatus = "active"
	OrderFailed     OrderStatus = "failed"
)

// Order lifecycle events.
const (
	EventOrderRegistered Event = "order_registered"
	EventOrderActivated  Event = "order_activated"
	EventOrderFailed     Event = "order_failed"
)

// OrderTransitions defines the registration order machine.
var OrderTransitions = []Transition{
	{Event: string(EventOrderRegistered), Src: string(OrderProcessing), Dst: string(OrderRegistered)},
	{Event: string(EventOrderActivated), Src: string(OrderRegistered), Dst: string(OrderActive)},
	{Event: string(EventOrderFailed), Src: string(OrderProcessing), Dst: string(OrderFailed)},
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderActive || s == OrderFailed
}

// DomainOrder is a registration transaction at the registrar. Orders are
// never hard-deleted: failed and completed orders remain as an audit trail.
type DomainOrder struct {
	ID         string
	CustomerID string
	TenantID   string // empty until provisioning creates or links a tenant

	Domain    string
	Extension string

	OwnerHandle   string
	AdminHandle   string
	TechHandle    string
	BillingHandle string

	Price    float64
	Currency string

	Status            OrderStatus
	RegistrarDomainID int64
	ExpiresAt         *time.Time
	HostingType       HostingType
	Diagnostic        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDomainOrder creates an order in the initial "processing" state.
func NewDomainOrder(id, customerID, domain, extension, ownerHandle string, hosting HostingType) DomainOrder {
	now := time.Now().UTC()
	return DomainOrder{
		ID:          id,
		CustomerID:  customerID,
		Domain:      domain,
		Extension:   extension,
		OwnerHandle: ownerHandle,
		Status:      OrderProcessing,
		HostingType: hosting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FQDN returns the order's fully qualified domain name.
func (o DomainOrder) FQDN() string {
	return o.Domain + "." + o.Extension
}

// TransferStatus represents the state of an inbound domain transfer.
type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferProcessing TransferStatus = "processing"
	TransferCompleted  TransferStatus = "completed"
	TransferFailed     TransferStatus = "failed"
)

// Transfer lifecycle events.
const (
	EventTransferStarted   Event = "transfer_started"
	EventTransferCompleted Event = "transfer_completed"
	EventTransferFailed    Event = "transfer_failed"
)

// TransferTransitions defines the inbound transfer machine.
var TransferTransitions = []Transition{
	{Event: string(EventTransferStarted), Src: string(TransferPending), Dst: string(TransferProcessing)},
	{Event: string(EventTransferCompleted), Src: string(TransferProcessing), Dst: string(TransferCompleted)},
	{Event: string(EventTransferFailed), Src: string(TransferPending), Dst: string(TransferFailed)},
	{Event: string(EventTransferFailed), Src: string(TransferProcessing), Dst: string(TransferFailed)},
}

// IsTerminal reports whether no further transitions are possible.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferFailed
}

// DomainTransfer is an inbound transfer transaction. The auth code passes
// through the registrar call only and is never persisted; AuthCodeProvided
// records that the customer supplied one.
type DomainTransfer struct {
	ID         string
	CustomerID string
	TenantID   string

	Domain    string
	Extension string

	OwnerHandle      string
	AuthCodeProvided bool

	Status              TransferStatus
	RegistrarTransferID int64
	RegistrarDomainID   int64
	HostingType         HostingType
	Diagnostic          string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDomainTransfer creates a transfer in the initial "pending" state.
func NewDomainTransfer(id, customerID, domain, extension, ownerHandle string, authCodeProvided bool, hosting HostingType) DomainTransfer {
	now := time.Now().UTC()
	return DomainTransfer{
		ID:               id,
		CustomerID:       customerID,
		Domain:           domain,
		Extension:        extension,
		OwnerHandle:      ownerHandle,
		AuthCodeProvided: authCodeProvided,
		Status:           TransferPending,
		HostingType:      hosting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// FQDN returns the transfer's fully qualified domain name.
func (t DomainTransfer) FQDN() string {
	return t.Domain + "." + t.Extension
}
