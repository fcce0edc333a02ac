// Package openprovider implements the domain.Registrar port against the
// OpenProvider REST API (v1beta).
package openprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caimari/musedock/internal/domain"
)

const defaultBaseURL = "https://api.openprovider.eu/v1beta"

// maxErrorBody limits how much of a response body is read for diagnostics.
const maxErrorBody = 64 * 1024

// Vendor result codes the orchestrator reacts to. OpenProvider returns a
// numeric code in every response envelope; 0 means success.
const (
	codeOK              = 0
	codeDuplicateDomain = 346
	codeAuthorization   = 2001
)

// wppContractFragment appears in the description of code 2001 refusals when
// the WHOIS-privacy contract is unsigned. The code alone is ambiguous
// (2001 covers several authorization failures), so the fragment narrows it.
const wppContractFragment = "wpp contract is not signed"

// Config holds the registrar client configuration.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is a typed client for the OpenProvider API. It implements
// domain.Registrar.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	// mu guards the cached bearer token. The client is shared between
	// request handlers and queue workers, and also serializes refreshes
	// so concurrent expired calls trigger a single login.
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Compile-time check: Client implements domain.Registrar.
var _ domain.Registrar = (*Client)(nil)

// New creates a registrar client.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(base, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
	}
}

// envelope is OpenProvider's uniform response wrapper.
type envelope struct {
	Code int             `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// apiError converts a non-zero envelope code into a typed domain error.
func apiError(code int, desc string) *domain.ExternalError {
	kind := domain.KindGeneric
	switch {
	case code == codeDuplicateDomain:
		kind = domain.KindAlreadyExists
	case code == codeAuthorization && strings.Contains(strings.ToLower(desc), wppContractFragment):
		kind = domain.KindWppContractUnsigned
	}
	return &domain.ExternalError{
		System:  domain.SystemRegistrar,
		Kind:    kind,
		Code:    strconv.Itoa(code),
		Message: desc,
	}
}

func transportError(err error) *domain.ExternalError {
	return &domain.ExternalError{
		System:  domain.SystemRegistrar,
		Kind:    domain.KindUnavailable,
		Message: err.Error(),
	}
}

// bearerToken returns the cached token, logging in when it is missing or
// expired. Tokens are valid for 24h; we refresh early.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	var data struct {
		Token string `json:"token"`
	}
	err := c.call(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": c.username,
		"password": c.password,
	}, &data, false)
	if err != nil {
		return "", err
	}

	c.token = data.Token
	c.tokenExpiry = time.Now().Add(12 * time.Hour)
	return c.token, nil
}

// call performs one API request and decodes the enveloped response into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any, authed bool) error {
	var token string
	if authed {
		var err error
		if token, err = c.bearerToken(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return transportError(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apiError(resp.StatusCode, fmt.Sprintf("unexpected response (HTTP %d): %.200s", resp.StatusCode, raw))
	}

	if env.Code != codeOK {
		return apiError(env.Code, env.Desc)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}

type nameserver struct {
	Name string `json:"name"`
}

func toNameservers(names []string) []nameserver {
	out := make([]nameserver, len(names))
	for i, n := range names {
		out[i] = nameserver{Name: n}
	}
	return out
}

// Search checks availability and pricing for a domain query. The query may
// be a bare name ("example") or a full domain; bare names are checked
// against a default set of extensions.
func (c *Client) Search(ctx context.Context, query string) ([]domain.DomainOffer, error) {
	name, exts := splitQuery(query)

	domains := make([]map[string]string, len(exts))
	for i, ext := range exts {
		domains[i] = map[string]string{"name": name, "extension": ext}
	}

	var data struct {
		Results []struct {
			Domain string `json:"domain"`
			Status string `json:"status"`
			Price  struct {
				Product struct {
					Price    float64 `json:"price"`
					Currency string  `json:"currency"`
				} `json:"product"`
			} `json:"price"`
		} `json:"results"`
	}
	err := c.call(ctx, http.MethodPost, "/domains/check", map[string]any{
		"domains":    domains,
		"with_price": true,
	}, &data, true)
	if err != nil {
		return nil, err
	}

	offers := make([]domain.DomainOffer, 0, len(data.Results))
	for _, r := range data.Results {
		offers = append(offers, domain.DomainOffer{
			Domain:    r.Domain,
			Available: r.Status == "free",
			Price:     r.Price.Product.Price,
			Currency:  r.Price.Product.Currency,
		})
	}
	return offers, nil
}

// defaultExtensions are checked when a search query carries no extension.
var defaultExtensions = []string{"com", "net", "org", "io", "es"}

func splitQuery(query string) (string, []string) {
	query = strings.TrimSpace(strings.ToLower(query))
	if i := strings.IndexByte(query, '.'); i > 0 {
		return query[:i], []string{query[i+1:]}
	}
	return query, defaultExtensions
}

// Register registers a new domain under the given owner handle.
func (c *Client) Register(ctx context.Context, req domain.RegisterDomainRequest) (domain.RegisteredDomain, error) {
	period := req.Period
	if period == 0 {
		period = 1
	}

	body := map[string]any{
		"domain": map[string]string{
			"name":      req.Name,
			"extension": req.Extension,
		},
		"period":         period,
		"owner_handle":   req.OwnerHandle,
		"admin_handle":   req.OwnerHandle,
		"tech_handle":    req.OwnerHandle,
		"billing_handle": req.OwnerHandle,
		"name_servers":   toNameservers(req.Nameservers),
	}
	if req.AutoRenew != "" {
		body["autorenew"] = req.AutoRenew
	}
	if req.Comments != "" {
		body["comments"] = req.Comments
	}

	var data struct {
		ID             int64  `json:"id"`
		ExpirationDate string `json:"expiration_date"`
	}
	if err := c.call(ctx, http.MethodPost, "/domains", body, &data, true); err != nil {
		return domain.RegisteredDomain{}, err
	}

	expiry, _ := time.Parse("2006-01-02 15:04:05", data.ExpirationDate)
	return domain.RegisteredDomain{RegistrarID: data.ID, ExpiresAt: expiry}, nil
}

// Transfer starts an inbound transfer using the customer's auth code.
func (c *Client) Transfer(ctx context.Context, req domain.TransferDomainRequest) (domain.StartedTransfer, error) {
	period := req.Period
	if period == 0 {
		period = 1
	}

	var data struct {
		ID int64 `json:"id"`
	}
	err := c.call(ctx, http.MethodPost, "/domains/transfer", map[string]any{
		"domain": map[string]string{
			"name":      req.Name,
			"extension": req.Extension,
		},
		"period":       period,
		"auth_code":    req.AuthCode,
		"owner_handle": req.OwnerHandle,
		"name_servers": toNameservers(req.Nameservers),
	}, &data, true)
	if err != nil {
		return domain.StartedTransfer{}, err
	}
	return domain.StartedTransfer{TransferID: data.ID}, nil
}

// GetOrCreateContact mirrors a contact at the registrar. A contact that
// already has a handle is reused as-is; otherwise a new customer record is
// created and its handle returned.
func (c *Client) GetOrCreateContact(ctx context.Context, contact domain.DomainContact) (string, error) {
	if contact.Handle != "" {
		return contact.Handle, nil
	}

	var data struct {
		Handle string `json:"handle"`
	}
	err := c.call(ctx, http.MethodPost, "/customers", map[string]any{
		"name": map[string]string{
			"first_name": contact.FirstName,
			"last_name":  contact.LastName,
		},
		"company_name": contact.CompanyName,
		"email":        contact.Email,
		"phone":        phoneParts(contact.Phone),
		"address": map[string]string{
			"street":  contact.Street,
			"number":  contact.Number,
			"zipcode": contact.ZipCode,
			"city":    contact.City,
			"state":   contact.State,
			"country": contact.CountryISO,
		},
	}, &data, true)
	if err != nil {
		return "", err
	}
	return data.Handle, nil
}

// phoneParts splits an E.164-ish phone into the registrar's three fields.
func phoneParts(phone string) map[string]string {
	phone = strings.TrimSpace(phone)
	country := ""
	if strings.HasPrefix(phone, "+") {
		if i := strings.IndexByte(phone, ' '); i > 0 {
			country, phone = phone[:i], strings.ReplaceAll(phone[i+1:], " ", "")
		}
	}
	area, subscriber := "", phone
	if len(phone) > 3 {
		area, subscriber = phone[:3], phone[3:]
	}
	return map[string]string{
		"country_code":      country,
		"area_code":         area,
		"subscriber_number": subscriber,
	}
}

// UpdateNameservers replaces the nameserver set for a registered domain.
func (c *Client) UpdateNameservers(ctx context.Context, registrarID int64, nameservers []string) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/domains/%d", registrarID), map[string]any{
		"name_servers": toNameservers(nameservers),
	}, nil, true)
}

// SetLock enables or disables the registrar transfer lock.
func (c *Client) SetLock(ctx context.Context, registrarID int64, locked bool) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/domains/%d", registrarID), map[string]any{
		"is_locked": locked,
	}, nil, true)
}

// AuthCode fetches the current transfer authorization code.
func (c *Client) AuthCode(ctx context.Context, registrarID int64) (string, error) {
	var data struct {
		AuthCode string `json:"auth_code"`
	}
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/domains/%d/authcode", registrarID), nil, &data, true)
	if err != nil {
		return "", err
	}
	return data.AuthCode, nil
}

// ResetAuthCode regenerates the transfer authorization code.
func (c *Client) ResetAuthCode(ctx context.Context, registrarID int64) (string, error) {
	var data struct {
		AuthCode string `json:"auth_code"`
	}
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/domains/%d/authcode/reset", registrarID), nil, &data, true)
	if err != nil {
		return "", err
	}
	return data.AuthCode, nil
}

// SetAutoRenew sets the renewal mode ("on", "off" or "default").
func (c *Client) SetAutoRenew(ctx context.Context, registrarID int64, mode string) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/domains/%d", registrarID), map[string]any{
		"autorenew": mode,
	}, nil, true)
}

// SetWhoisPrivacy toggles WHOIS privacy protection. When the customer's
// privacy contract is unsigned the registrar refuses; that refusal comes
// back as a KindWppContractUnsigned error so callers can surface the
// required action instead of a generic failure.
func (c *Client) SetWhoisPrivacy(ctx context.Context, registrarID int64, enabled bool) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/domains/%d", registrarID), map[string]any{
		"is_private_whois_enabled": enabled,
	}, nil, true)
}
