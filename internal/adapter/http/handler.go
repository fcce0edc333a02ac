package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/caimari/musedock/internal/app"
	"github.com/caimari/musedock/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ActorParams carries the request-scoped identity. Authentication itself
// happens upstream (gateway or middleware); these headers are its output.
// The type must be exported so huma's reflection binds the header fields.
type ActorParams struct {
	CustomerID string `header:"X-Customer-ID" doc:"Authenticated customer ID"`
	Superadmin bool   `header:"X-Superadmin" required:"false" doc:"Whether the caller has platform-wide access"`
}

func (p ActorParams) actor() app.Actor {
	return app.Actor{CustomerID: p.CustomerID, Superadmin: p.Superadmin}
}

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID                  string   `json:"id" doc:"Unique identifier"`
	CustomerID          string   `json:"customer_id" doc:"Owning customer"`
	Domain              string   `json:"domain" doc:"Fully qualified domain"`
	IsSubdomain         bool     `json:"is_subdomain" doc:"Whether the domain lives under the platform base domain"`
	Status              string   `json:"status" doc:"Lifecycle state"`
	Plan                string   `json:"plan" doc:"Subscription plan"`
	HostingType         string   `json:"hosting_type" doc:"dns_only or full_hosting"`
	ZoneID              string   `json:"zone_id,omitempty" doc:"DNS zone identifier"`
	Nameservers         []string `json:"nameservers,omitempty" doc:"Nameservers the domain must delegate to"`
	EdgeStatus          string   `json:"edge_status,omitempty" doc:"Edge routing state"`
	EmailRoutingEnabled bool     `json:"email_routing_enabled" doc:"Whether email routing is active"`
	Diagnostic          string   `json:"diagnostic,omitempty" doc:"Last provisioning failure detail"`
	EdgeDiagnostic      string   `json:"edge_diagnostic,omitempty" doc:"Last edge failure detail"`
	ActivatedAt         string   `json:"activated_at,omitempty" doc:"Activation timestamp (ISO 8601)"`
	CreatedAt           string   `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt           string   `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:                  t.ID,
		CustomerID:          t.CustomerID,
		Domain:              t.Domain,
		IsSubdomain:         t.IsSubdomain,
		Status:              string(t.Status),
		Plan:                t.Plan,
		HostingType:         string(t.HostingType),
		ZoneID:              t.ZoneID,
		Nameservers:         t.Nameservers,
		EdgeStatus:          string(t.EdgeStatus),
		EmailRoutingEnabled: t.EmailRoutingEnabled,
		Diagnostic:          t.Diagnostic,
		EdgeDiagnostic:      t.EdgeDiagnostic,
		ActivatedAt:         formatTimePtr(t.ActivatedAt),
		CreatedAt:           t.CreatedAt.Format(timeFormat),
		UpdatedAt:           t.UpdatedAt.Format(timeFormat),
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeFormat)
}

// OrderResponse is the API representation of a domain registration order.
type OrderResponse struct {
	ID          string  `json:"id" doc:"Unique identifier"`
	CustomerID  string  `json:"customer_id" doc:"Owning customer"`
	TenantID    string  `json:"tenant_id,omitempty" doc:"Tenant created for this domain"`
	Domain      string  `json:"domain" doc:"Domain name without extension"`
	Extension   string  `json:"extension" doc:"TLD"`
	Status      string  `json:"status" doc:"Order state"`
	HostingType string  `json:"hosting_type" doc:"dns_only or full_hosting"`
	Price       float64 `json:"price,omitempty" doc:"Registration price"`
	Currency    string  `json:"currency,omitempty" doc:"Price currency"`
	ExpiresAt   string  `json:"expires_at,omitempty" doc:"Registration expiry (ISO 8601)"`
	Diagnostic  string  `json:"diagnostic,omitempty" doc:"Failure detail"`
	CreatedAt   string  `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toOrderResponse(o domain.DomainOrder) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		TenantID:    o.TenantID,
		Domain:      o.Domain,
		Extension:   o.Extension,
		Status:      string(o.Status),
		HostingType: string(o.HostingType),
		Price:       o.Price,
		Currency:    o.Currency,
		ExpiresAt:   formatTimePtr(o.ExpiresAt),
		Diagnostic:  o.Diagnostic,
		CreatedAt:   o.CreatedAt.Format(timeFormat),
	}
}

// TransferResponse is the API representation of an inbound transfer.
type TransferResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	CustomerID  string `json:"customer_id" doc:"Owning customer"`
	TenantID    string `json:"tenant_id,omitempty" doc:"Tenant created for this domain"`
	Domain      string `json:"domain" doc:"Domain name without extension"`
	Extension   string `json:"extension" doc:"TLD"`
	Status      string `json:"status" doc:"Transfer state"`
	HostingType string `json:"hosting_type" doc:"dns_only or full_hosting"`
	Diagnostic  string `json:"diagnostic,omitempty" doc:"Failure detail"`
	CreatedAt   string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toTransferResponse(t domain.DomainTransfer) TransferResponse {
	return TransferResponse{
		ID:          t.ID,
		CustomerID:  t.CustomerID,
		TenantID:    t.TenantID,
		Domain:      t.Domain,
		Extension:   t.Extension,
		Status:      string(t.Status),
		HostingType: string(t.HostingType),
		Diagnostic:  t.Diagnostic,
		CreatedAt:   t.CreatedAt.Format(timeFormat),
	}
}

// ContactResponse is the API representation of a registrant contact.
type ContactResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Street      string `json:"street"`
	Number      string `json:"number,omitempty"`
	ZipCode     string `json:"zip_code"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	CountryISO  string `json:"country" doc:"ISO 3166-1 alpha-2 country code"`
	IsDefault   bool   `json:"is_default" doc:"Used when no contact is named explicitly"`
}

func toContactResponse(c domain.DomainContact) ContactResponse {
	return ContactResponse{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		CompanyName: c.CompanyName,
		Email:       c.Email,
		Phone:       c.Phone,
		Street:      c.Street,
		Number:      c.Number,
		ZipCode:     c.ZipCode,
		City:        c.City,
		State:       c.State,
		CountryISO:  c.CountryISO,
		IsDefault:   c.IsDefault,
	}
}

// OfferResponse is one availability result from a domain search.
type OfferResponse struct {
	Domain    string  `json:"domain"`
	Available bool    `json:"available"`
	Price     float64 `json:"price,omitempty"`
	Currency  string  `json:"currency,omitempty"`
}

// RuleResponse is one email forwarding rule.
type RuleResponse struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Enabled bool   `json:"enabled"`
}

// --- tenant inputs ---

type ProvisionSubdomainInput struct {
	ActorParams
	Body struct {
		Label string `json:"label" minLength:"1" maxLength:"63" doc:"Subdomain label under the platform base domain"`
		Plan  string `json:"plan,omitempty" default:"free" doc:"Subscription plan"`
	}
}

type ProvisionSubdomainOutput struct {
	Body TenantResponse
}

type GetTenantInput struct {
	ActorParams
	ID string `path:"id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body TenantResponse
}

type ListTenantsInput struct {
	ActorParams
	Status string `query:"status" required:"false" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body []TenantResponse
}

type DeleteTenantInput struct {
	ActorParams
	ID string `path:"id" doc:"Tenant ID"`
}

type DeleteTenantOutput struct{}

type AttachCustomDomainInput struct {
	ActorParams
	Body struct {
		Domain      string `json:"domain" minLength:"4" maxLength:"253" doc:"Customer-owned domain to attach"`
		Plan        string `json:"plan,omitempty" default:"free" doc:"Subscription plan"`
		NotifyEmail string `json:"notify_email" format:"email" doc:"Address receiving nameserver instructions"`
	}
}

type AttachCustomDomainOutput struct {
	Body TenantResponse
}

type RetryInput struct {
	ActorParams
	ID string `path:"id" doc:"Tenant ID"`
}

type RetryOutput struct {
	Body TenantResponse
}

type CheckNameserversInput struct {
	ActorParams
	ID string `path:"id" doc:"Tenant ID"`
}

type CheckNameserversOutput struct {
	Body struct {
		Verified bool           `json:"verified" doc:"Whether delegation was confirmed"`
		Tenant   TenantResponse `json:"tenant"`
	}
}

type HostingInput struct {
	ActorParams
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Action      string `json:"action" enum:"upgrade,downgrade" doc:"Switch between dns_only and full_hosting"`
		NotifyEmail string `json:"notify_email,omitempty" format:"email" doc:"Address receiving activation credentials on upgrade"`
	}
}

type HostingOutput struct {
	Body TenantResponse
}

// --- domain inputs ---

type SearchDomainsInput struct {
	ActorParams
	Query string `query:"q" minLength:"1" doc:"Domain name, with or without extension"`
}

type SearchDomainsOutput struct {
	Body []OfferResponse
}

type RegisterDomainInput struct {
	ActorParams
	Body struct {
		Name         string `json:"name" minLength:"1" doc:"Domain name without extension"`
		Extension    string `json:"extension" minLength:"2" doc:"TLD"`
		ContactID    string `json:"contact_id,omitempty" doc:"Registrant contact; default contact when empty"`
		Period       int    `json:"period,omitempty" default:"1" minimum:"1" maximum:"10" doc:"Registration period in years"`
		AutoRenew    string `json:"auto_renew,omitempty" enum:"on,off,default,"`
		WhoisPrivacy bool   `json:"whois_privacy,omitempty" doc:"Enable WHOIS privacy after registration"`
		HostingType  string `json:"hosting_type,omitempty" enum:"dns_only,full_hosting," default:"full_hosting"`
		Plan         string `json:"plan,omitempty" default:"free" doc:"Subscription plan"`
	}
}

type RegisterDomainOutput struct {
	Body OrderResponse
}

type TransferDomainInput struct {
	ActorParams
	Body struct {
		Name        string `json:"name" minLength:"1" doc:"Domain name without extension"`
		Extension   string `json:"extension" minLength:"2" doc:"TLD"`
		AuthCode    string `json:"auth_code,omitempty" doc:"Transfer authorization code; forwarded to the registrar, never stored"`
		ContactID   string `json:"contact_id,omitempty" doc:"Registrant contact; default contact when empty"`
		HostingType string `json:"hosting_type,omitempty" enum:"dns_only,full_hosting," default:"full_hosting"`
		Plan        string `json:"plan,omitempty" default:"free" doc:"Subscription plan"`
	}
}

type TransferDomainOutput struct {
	Body TransferResponse
}

type GetOrderInput struct {
	ActorParams
	ID string `path:"id" doc:"Order ID"`
}

type GetOrderOutput struct {
	Body OrderResponse
}

type ListOrdersInput struct {
	ActorParams
}

type ListOrdersOutput struct {
	Body []OrderResponse
}

type GetTransferInput struct {
	ActorParams
	ID string `path:"id" doc:"Transfer ID"`
}

type GetTransferOutput struct {
	Body TransferResponse
}

type CompleteTransferInput struct {
	ActorParams
	ID   string `path:"id" doc:"Transfer ID"`
	Body struct {
		RegistrarDomainID int64 `json:"registrar_domain_id" doc:"Registrar-side domain ID reported on completion"`
	}
}

type CompleteTransferOutput struct {
	Body TransferResponse
}

type UpdateNameserversInput struct {
	ActorParams
	ID   string `path:"id" doc:"Order ID"`
	Body struct {
		Nameservers []string `json:"nameservers" minItems:"2" doc:"Replacement nameserver set"`
	}
}

type UpdateNameserversOutput struct{}

type SetLockInput struct {
	ActorParams
	ID   string `path:"id" doc:"Order ID"`
	Body struct {
		Locked bool `json:"locked"`
	}
}

type SetLockOutput struct{}

type AuthCodeInput struct {
	ActorParams
	ID string `path:"id" doc:"Order ID"`
}

type AuthCodeOutput struct {
	Body struct {
		AuthCode string `json:"auth_code" doc:"Current transfer authorization code; not stored server side"`
	}
}

type SetAutoRenewInput struct {
	ActorParams
	ID   string `path:"id" doc:"Order ID"`
	Body struct {
		Mode string `json:"mode" enum:"on,off,default"`
	}
}

type SetAutoRenewOutput struct{}

type SetWhoisPrivacyInput struct {
	ActorParams
	ID   string `path:"id" doc:"Order ID"`
	Body struct {
		Enabled bool `json:"enabled"`
	}
}

type SetWhoisPrivacyOutput struct{}

// --- contact inputs ---

type CreateContactInput struct {
	ActorParams
	Body struct {
		FirstName   string `json:"first_name" minLength:"1"`
		LastName    string `json:"last_name" minLength:"1"`
		CompanyName string `json:"company_name,omitempty"`
		Email       string `json:"email" format:"email"`
		Phone       string `json:"phone" minLength:"1"`
		Street      string `json:"street" minLength:"1"`
		Number      string `json:"number,omitempty"`
		ZipCode     string `json:"zip_code" minLength:"1"`
		City        string `json:"city" minLength:"1"`
		State       string `json:"state,omitempty"`
		Country     string `json:"country" minLength:"2" maxLength:"2" doc:"ISO 3166-1 alpha-2 country code"`
		IsDefault   bool   `json:"is_default,omitempty"`
	}
}

type CreateContactOutput struct {
	Body ContactResponse
}

type ListContactsInput struct {
	ActorParams
}

type ListContactsOutput struct {
	Body []ContactResponse
}

type DeleteContactInput struct {
	ActorParams
	ID string `path:"id" doc:"Contact ID"`
}

type DeleteContactOutput struct{}

// --- email routing inputs ---

type EmailRoutingInput struct {
	ActorParams
	ID string `path:"id" doc:"Tenant ID"`
}

type EmailRoutingOutput struct {
	Body TenantResponse
}

type ListRulesInput struct {
	ActorParams
	ID string `path:"id" doc:"Tenant ID"`
}

type ListRulesOutput struct {
	Body []RuleResponse
}

type CreateRuleInput struct {
	ActorParams
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		From string `json:"from" format:"email" doc:"Address on the tenant's domain"`
		To   string `json:"to" format:"email" doc:"Destination address"`
	}
}

type CreateRuleOutput struct {
	Body RuleResponse
}

type DeleteRuleInput struct {
	ActorParams
	ID     string `path:"id" doc:"Tenant ID"`
	RuleID string `path:"ruleId" doc:"Forwarding rule ID"`
}

type DeleteRuleOutput struct{}

type CatchAllInput struct {
	ActorParams
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Enabled bool   `json:"enabled"`
		To      string `json:"to,omitempty" format:"email" doc:"Destination; required when enabled"`
	}
}

type CatchAllOutput struct{}

// Register adds all provisioning API routes to the Huma API.
func Register(api huma.API, svc *app.ProvisioningService) {
	registerTenantRoutes(api, svc)
	registerDomainRoutes(api, svc)
	registerContactRoutes(api, svc)
	registerEmailRoutes(api, svc)
}

func registerTenantRoutes(api huma.API, svc *app.ProvisioningService) {
	huma.Register(api, huma.Operation{
		OperationID: "provision-subdomain",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants",
		Summary:     "Provision a subdomain tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ProvisionSubdomainInput) (*ProvisionSubdomainOutput, error) {
		tenant, err := svc.ProvisionSubdomain(ctx, input.actor(), app.ProvisionSubdomainRequest{
			Label: input.Body.Label,
			Plan:  input.Body.Plan,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProvisionSubdomainOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		tenant, err := svc.GetTenant(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.ListTenants(ctx, input.actor(), filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TenantResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toTenantResponse(t)
		}
		return &ListTenantsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tenant",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tenants/{id}",
		Summary:       "Delete a tenant and its external resources",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteTenantInput) (*DeleteTenantOutput, error) {
		if err := svc.DeleteTenant(ctx, input.actor(), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return &DeleteTenantOutput{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-custom-domain",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/custom-domain",
		Summary:     "Attach a customer-owned domain",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *AttachCustomDomainInput) (*AttachCustomDomainOutput, error) {
		tenant, err := svc.AttachCustomDomain(ctx, input.actor(), app.AttachCustomDomainRequest{
			Domain:      input.Body.Domain,
			Plan:        input.Body.Plan,
			NotifyEmail: input.Body.NotifyEmail,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AttachCustomDomainOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retry-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/retry",
		Summary:     "Retry provisioning from the last failed step",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *RetryInput) (*RetryOutput, error) {
		tenant, err := svc.Retry(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RetryOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-nameservers",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/check-nameservers",
		Summary:     "Check nameserver delegation now",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CheckNameserversInput) (*CheckNameserversOutput, error) {
		actor := input.actor()
		verified, err := svc.CheckNameserversFor(ctx, actor, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		tenant, err := svc.GetTenant(ctx, actor, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &CheckNameserversOutput{}
		out.Body.Verified = verified
		out.Body.Tenant = toTenantResponse(tenant)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-hosting",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/hosting",
		Summary:     "Upgrade or downgrade the tenant's hosting type",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *HostingInput) (*HostingOutput, error) {
		var (
			tenant domain.Tenant
			err    error
		)
		switch input.Body.Action {
		case "upgrade":
			tenant, err = svc.UpgradeHosting(ctx, input.actor(), input.ID, input.Body.NotifyEmail)
		case "downgrade":
			tenant, err = svc.DowngradeHosting(ctx, input.actor(), input.ID)
		}
		if err != nil {
			return nil, toHumaError(err)
		}
		return &HostingOutput{Body: toTenantResponse(tenant)}, nil
	})
}

func registerDomainRoutes(api huma.API, svc *app.ProvisioningService) {
	huma.Register(api, huma.Operation{
		OperationID: "search-domains",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains/search",
		Summary:     "Check domain availability and pricing",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *SearchDomainsInput) (*SearchDomainsOutput, error) {
		offers, err := svc.SearchDomains(ctx, input.Query)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]OfferResponse, len(offers))
		for i, o := range offers {
			resp[i] = OfferResponse{
				Domain:    o.Domain,
				Available: o.Available,
				Price:     o.Price,
				Currency:  o.Currency,
			}
		}
		return &SearchDomainsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "register-domain",
		Method:      http.MethodPost,
		Path:        "/api/v1/domains",
		Summary:     "Register a new domain and provision its tenant",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *RegisterDomainInput) (*RegisterDomainOutput, error) {
		order, err := svc.RegisterDomain(ctx, input.actor(), app.RegisterDomainRequest{
			Name:         input.Body.Name,
			Extension:    input.Body.Extension,
			ContactID:    input.Body.ContactID,
			Period:       input.Body.Period,
			AutoRenew:    input.Body.AutoRenew,
			WhoisPrivacy: input.Body.WhoisPrivacy,
			HostingType:  domain.HostingType(input.Body.HostingType),
			Plan:         input.Body.Plan,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegisterDomainOutput{Body: toOrderResponse(order)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains/orders",
		Summary:     "List domain orders",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *ListOrdersInput) (*ListOrdersOutput, error) {
		orders, err := svc.ListOrders(ctx, input.actor())
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]OrderResponse, len(orders))
		for i, o := range orders {
			resp[i] = toOrderResponse(o)
		}
		return &ListOrdersOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains/orders/{id}",
		Summary:     "Get a domain order by ID",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *GetOrderInput) (*GetOrderOutput, error) {
		order, err := svc.GetOrder(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetOrderOutput{Body: toOrderResponse(order)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transfer-domain",
		Method:      http.MethodPost,
		Path:        "/api/v1/domains/transfers",
		Summary:     "Start an inbound domain transfer",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *TransferDomainInput) (*TransferDomainOutput, error) {
		transfer, err := svc.TransferDomain(ctx, input.actor(), app.TransferDomainRequest{
			Name:        input.Body.Name,
			Extension:   input.Body.Extension,
			AuthCode:    input.Body.AuthCode,
			ContactID:   input.Body.ContactID,
			HostingType: domain.HostingType(input.Body.HostingType),
			Plan:        input.Body.Plan,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransferDomainOutput{Body: toTransferResponse(transfer)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-transfer",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains/transfers/{id}",
		Summary:     "Get a domain transfer by ID",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *GetTransferInput) (*GetTransferOutput, error) {
		transfer, err := svc.GetTransfer(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTransferOutput{Body: toTransferResponse(transfer)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-transfer",
		Method:      http.MethodPost,
		Path:        "/api/v1/domains/transfers/{id}/complete",
		Summary:     "Finish a transfer once the registry confirms it",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *CompleteTransferInput) (*CompleteTransferOutput, error) {
		transfer, err := svc.CompleteTransfer(ctx, input.actor(), input.ID, input.Body.RegistrarDomainID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CompleteTransferOutput{Body: toTransferResponse(transfer)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "update-nameservers",
		Method:        http.MethodPut,
		Path:          "/api/v1/domains/orders/{id}/nameservers",
		Summary:       "Replace the domain's nameservers at the registrar",
		Tags:          []string{"Domains"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *UpdateNameserversInput) (*UpdateNameserversOutput, error) {
		if err := svc.UpdateDomainNameservers(ctx, input.actor(), input.ID, input.Body.Nameservers); err != nil {
			return nil, toHumaError(err)
		}
		return &UpdateNameserversOutput{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "set-domain-lock",
		Method:        http.MethodPut,
		Path:          "/api/v1/domains/orders/{id}/lock",
		Summary:       "Lock or unlock the domain against transfers",
		Tags:          []string{"Domains"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *SetLockInput) (*SetLockOutput, error) {
		if err := svc.SetDomainLock(ctx, input.actor(), input.ID, input.Body.Locked); err != nil {
			return nil, toHumaError(err)
		}
		return &SetLockOutput{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-auth-code",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains/orders/{id}/auth-code",
		Summary:     "Fetch the domain's transfer authorization code",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *AuthCodeInput) (*AuthCodeOutput, error) {
		code, err := svc.GetAuthCode(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &AuthCodeOutput{}
		out.Body.AuthCode = code
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "regenerate-auth-code",
		Method:      http.MethodPost,
		Path:        "/api/v1/domains/orders/{id}/auth-code",
		Summary:     "Regenerate the domain's transfer authorization code",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *AuthCodeInput) (*AuthCodeOutput, error) {
		code, err := svc.RegenerateAuthCode(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &AuthCodeOutput{}
		out.Body.AuthCode = code
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "set-auto-renew",
		Method:        http.MethodPut,
		Path:          "/api/v1/domains/orders/{id}/auto-renew",
		Summary:       "Set the domain's renewal mode",
		Tags:          []string{"Domains"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *SetAutoRenewInput) (*SetAutoRenewOutput, error) {
		if err := svc.SetAutoRenew(ctx, input.actor(), input.ID, input.Body.Mode); err != nil {
			return nil, toHumaError(err)
		}
		return &SetAutoRenewOutput{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "set-whois-privacy",
		Method:        http.MethodPut,
		Path:          "/api/v1/domains/orders/{id}/whois-privacy",
		Summary:       "Enable or disable WHOIS privacy",
		Tags:          []string{"Domains"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *SetWhoisPrivacyInput) (*SetWhoisPrivacyOutput, error) {
		if err := svc.SetWhoisPrivacy(ctx, input.actor(), input.ID, input.Body.Enabled); err != nil {
			return nil, toHumaError(err)
		}
		return &SetWhoisPrivacyOutput{}, nil
	})
}

func registerContactRoutes(api huma.API, svc *app.ProvisioningService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-contact",
		Method:      http.MethodPost,
		Path:        "/api/v1/contacts",
		Summary:     "Create a registrant contact",
		Tags:        []string{"Contacts"},
	}, func(ctx context.Context, input *CreateContactInput) (*CreateContactOutput, error) {
		contact, err := svc.CreateContact(ctx, input.actor(), domain.DomainContact{
			FirstName:   input.Body.FirstName,
			LastName:    input.Body.LastName,
			CompanyName: input.Body.CompanyName,
			Email:       input.Body.Email,
			Phone:       input.Body.Phone,
			Street:      input.Body.Street,
			Number:      input.Body.Number,
			ZipCode:     input.Body.ZipCode,
			City:        input.Body.City,
			State:       input.Body.State,
			CountryISO:  input.Body.Country,
			IsDefault:   input.Body.IsDefault,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateContactOutput{Body: toContactResponse(contact)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contacts",
		Method:      http.MethodGet,
		Path:        "/api/v1/contacts",
		Summary:     "List registrant contacts",
		Tags:        []string{"Contacts"},
	}, func(ctx context.Context, input *ListContactsInput) (*ListContactsOutput, error) {
		contacts, err := svc.ListContacts(ctx, input.actor())
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]ContactResponse, len(contacts))
		for i, c := range contacts {
			resp[i] = toContactResponse(c)
		}
		return &ListContactsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-contact",
		Method:        http.MethodDelete,
		Path:          "/api/v1/contacts/{id}",
		Summary:       "Delete a registrant contact",
		Tags:          []string{"Contacts"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteContactInput) (*DeleteContactOutput, error) {
		if err := svc.DeleteContact(ctx, input.actor(), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return &DeleteContactOutput{}, nil
	})
}

func registerEmailRoutes(api huma.API, svc *app.ProvisioningService) {
	huma.Register(api, huma.Operation{
		OperationID: "enable-email-routing",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/email-routing",
		Summary:     "Enable email routing for the tenant's zone",
		Tags:        []string{"Email"},
	}, func(ctx context.Context, input *EmailRoutingInput) (*EmailRoutingOutput, error) {
		tenant, err := svc.EnableEmailRouting(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EmailRoutingOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "disable-email-routing",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tenants/{id}/email-routing",
		Summary:     "Disable email routing for the tenant's zone",
		Tags:        []string{"Email"},
	}, func(ctx context.Context, input *EmailRoutingInput) (*EmailRoutingOutput, error) {
		tenant, err := svc.DisableEmailRouting(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EmailRoutingOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-forwarding-rules",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}/email-routing/rules",
		Summary:     "List email forwarding rules",
		Tags:        []string{"Email"},
	}, func(ctx context.Context, input *ListRulesInput) (*ListRulesOutput, error) {
		rules, err := svc.ListForwardingRules(ctx, input.actor(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]RuleResponse, len(rules))
		for i, r := range rules {
			resp[i] = RuleResponse{ID: r.ID, From: r.From, To: r.To, Enabled: r.Enabled}
		}
		return &ListRulesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-forwarding-rule",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/email-routing/rules",
		Summary:     "Create an email forwarding rule",
		Tags:        []string{"Email"},
	}, func(ctx context.Context, input *CreateRuleInput) (*CreateRuleOutput, error) {
		rule, err := svc.CreateForwardingRule(ctx, input.actor(), input.ID, input.Body.From, input.Body.To)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateRuleOutput{Body: RuleResponse{ID: rule.ID, From: rule.From, To: rule.To, Enabled: rule.Enabled}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-forwarding-rule",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tenants/{id}/email-routing/rules/{ruleId}",
		Summary:       "Delete an email forwarding rule",
		Tags:          []string{"Email"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteRuleInput) (*DeleteRuleOutput, error) {
		if err := svc.DeleteForwardingRule(ctx, input.actor(), input.ID, input.RuleID); err != nil {
			return nil, toHumaError(err)
		}
		return &DeleteRuleOutput{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "update-catch-all",
		Method:        http.MethodPut,
		Path:          "/api/v1/tenants/{id}/email-routing/catch-all",
		Summary:       "Set the catch-all forwarding behavior",
		Tags:          []string{"Email"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *CatchAllInput) (*CatchAllOutput, error) {
		if err := svc.UpdateCatchAll(ctx, input.actor(), input.ID, input.Body.To, input.Body.Enabled); err != nil {
			return nil, toHumaError(err)
		}
		return &CatchAllOutput{}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrTransferNotFound),
		errors.Is(err, domain.ErrContactNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrStaleTenant),
		errors.Is(err, domain.ErrProvisioningInFlight):
		return huma.Error409Conflict(err.Error())
	}

	var conflictErr *domain.DomainConflictError
	if errors.As(err, &conflictErr) {
		return huma.Error409Conflict(conflictErr.Error())
	}

	var inUseErr *domain.ContactInUseError
	if errors.As(err, &inUseErr) {
		return huma.Error409Conflict(inUseErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error400BadRequest(valErr.Error())
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return huma.Error412PreconditionFailed(cfgErr.Error())
	}

	var extErr *domain.ExternalError
	if errors.As(err, &extErr) {
		return huma.Error502BadGateway(extErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
