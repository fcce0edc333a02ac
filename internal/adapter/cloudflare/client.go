// Package cloudflare implements the domain.ZoneManager port against the
// Cloudflare v4 API.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caimari/musedock/internal/domain"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

const maxErrorBody = 64 * 1024

// Vendor error codes the orchestrator reacts to.
const (
	codeZoneAlreadyExists   = 1061
	codeRecordAlreadyExists = 81057
)

// Config holds the zone manager configuration.
type Config struct {
	BaseURL   string
	APIToken  string
	AccountID string
	Timeout   time.Duration
}

// Client is a typed client for the Cloudflare API. It implements
// domain.ZoneManager.
type Client struct {
	baseURL   string
	token     string
	accountID string
	http      *http.Client
}

// Compile-time check: Client implements domain.ZoneManager.
var _ domain.ZoneManager = (*Client)(nil)

// New creates a zone manager client.
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
		baseURL:   strings.TrimRight(base, "/"),
		token:     cfg.APIToken,
		accountID: cfg.AccountID,
		http:      &http.Client{Timeout: timeout},
	}
}

// envelope is Cloudflare's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiMessage    `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// apiError converts the first vendor error into a typed domain error.
func apiError(errs []apiMessage) *domain.ExternalError {
	if len(errs) == 0 {
		return &domain.ExternalError{
			System:  domain.SystemDNS,
			Kind:    domain.KindGeneric,
			Message: "request failed without error detail",
		}
	}
	first := errs[0]
	kind := domain.KindGeneric
	if first.Code == codeZoneAlreadyExists || first.Code == codeRecordAlreadyExists {
		kind = domain.KindAlreadyExists
	}
	return &domain.ExternalError{
		System:  domain.SystemDNS,
		Kind:    kind,
		Code:    strconv.Itoa(first.Code),
		Message: first.Message,
	}
}

func transportError(err error) *domain.ExternalError {
	return &domain.ExternalError{
		System:  domain.SystemDNS,
		Kind:    domain.KindUnavailable,
		Message: err.Error(),
	}
}

// call performs one API request and decodes the result into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
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
	req.Header.Set("Authorization", "Bearer "+c.token)

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
		return &domain.ExternalError{
			System:  domain.SystemDNS,
			Kind:    domain.KindGeneric,
			Code:    strconv.Itoa(resp.StatusCode),
			Message: fmt.Sprintf("unexpected response: %.200s", raw),
		}
	}

	if !env.Success {
		return apiError(env.Errors)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decoding response result: %w", err)
		}
	}
	return nil
}

type zonePayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	NameServers []string `json:"name_servers"`
}

func (z zonePayload) toDomain() domain.Zone {
	return domain.Zone{
		ID:          z.ID,
		Name:        z.Name,
		Status:      z.Status,
		Nameservers: z.NameServers,
	}
}

// CreateZone creates a zone for the domain. When the provider reports the
// zone already exists, the existing zone is looked up and returned so that
// repeated provisioning runs recover instead of failing.
func (c *Client) CreateZone(ctx context.Context, name string) (domain.Zone, error) {
	body := map[string]any{
		"name": name,
		"type": "full",
	}
	if c.accountID != "" {
		body["account"] = map[string]string{"id": c.accountID}
	}

	var created zonePayload
	err := c.call(ctx, http.MethodPost, "/zones", body, &created)
	if err == nil {
		return created.toDomain(), nil
	}
	if !domain.IsAlreadyExists(err) {
		return domain.Zone{}, err
	}

	zone, lookupErr := c.findZone(ctx, name)
	if lookupErr != nil {
		return domain.Zone{}, lookupErr
	}
	return zone, nil
}

// findZone looks a zone up by exact name.
func (c *Client) findZone(ctx context.Context, name string) (domain.Zone, error) {
	var zones []zonePayload
	err := c.call(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(name), nil, &zones)
	if err != nil {
		return domain.Zone{}, err
	}
	if len(zones) == 0 {
		return domain.Zone{}, &domain.ExternalError{
			System:  domain.SystemDNS,
			Kind:    domain.KindGeneric,
			Message: fmt.Sprintf("zone %q reported as existing but not found", name),
		}
	}
	return zones[0].toDomain(), nil
}

// GetZone fetches a zone by id.
func (c *Client) GetZone(ctx context.Context, zoneID string) (domain.Zone, error) {
	var zone zonePayload
	if err := c.call(ctx, http.MethodGet, "/zones/"+zoneID, nil, &zone); err != nil {
		return domain.Zone{}, err
	}
	return zone.toDomain(), nil
}

// DeleteZone removes a zone.
func (c *Client) DeleteZone(ctx context.Context, zoneID string) error {
	return c.call(ctx, http.MethodDelete, "/zones/"+zoneID, nil, nil)
}

type recordPayload struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

func (r recordPayload) toDomain() domain.ZoneRecord {
	return domain.ZoneRecord{
		ID:      r.ID,
		Type:    r.Type,
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: r.Proxied,
	}
}

func fromDomainRecord(r domain.ZoneRecord) recordPayload {
	ttl := r.TTL
	if ttl == 0 {
		ttl = 1 // automatic
	}
	return recordPayload{
		ID:      r.ID,
		Type:    r.Type,
		Name:    r.Name,
		Content: r.Content,
		TTL:     ttl,
		Proxied: r.Proxied,
	}
}

// ListRecords returns all DNS records in a zone.
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]domain.ZoneRecord, error) {
	var records []recordPayload
	err := c.call(ctx, http.MethodGet, "/zones/"+zoneID+"/dns_records?per_page=100", nil, &records)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ZoneRecord, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CreateRecord creates one DNS record.
func (c *Client) CreateRecord(ctx context.Context, zoneID string, record domain.ZoneRecord) (domain.ZoneRecord, error) {
	var created recordPayload
	err := c.call(ctx, http.MethodPost, "/zones/"+zoneID+"/dns_records", fromDomainRecord(record), &created)
	if err != nil {
		return domain.ZoneRecord{}, err
	}
	return created.toDomain(), nil
}

// UpdateRecord replaces an existing DNS record.
func (c *Client) UpdateRecord(ctx context.Context, zoneID string, record domain.ZoneRecord) error {
	return c.call(ctx, http.MethodPut, "/zones/"+zoneID+"/dns_records/"+record.ID, fromDomainRecord(record), nil)
}

// DeleteRecord removes one DNS record.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	return c.call(ctx, http.MethodDelete, "/zones/"+zoneID+"/dns_records/"+recordID, nil, nil)
}

// EnsureCNAME creates a CNAME unless an equivalent record already exists.
// An existing CNAME with the same name and target is left untouched; a
// vendor "record already exists" response is likewise treated as done.
func (c *Client) EnsureCNAME(ctx context.Context, zoneID, name, target string, proxied bool) error {
	records, err := c.ListRecords(ctx, zoneID)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Type == "CNAME" && sameHost(r.Name, name) && sameHost(r.Content, target) {
			return nil
		}
	}

	_, err = c.CreateRecord(ctx, zoneID, domain.ZoneRecord{
		Type:    "CNAME",
		Name:    name,
		Content: target,
		Proxied: proxied,
	})
	if domain.IsAlreadyExists(err) {
		return nil
	}
	return err
}

// sameHost compares hostnames ignoring case and a trailing dot.
func sameHost(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

// EnableEmailRouting turns on email routing for a zone.
func (c *Client) EnableEmailRouting(ctx context.Context, zoneID string) error {
	return c.call(ctx, http.MethodPost, "/zones/"+zoneID+"/email/routing/enable", nil, nil)
}

// DisableEmailRouting turns off email routing for a zone.
func (c *Client) DisableEmailRouting(ctx context.Context, zoneID string) error {
	return c.call(ctx, http.MethodPost, "/zones/"+zoneID+"/email/routing/disable", nil, nil)
}

type rulePayload struct {
	ID       string `json:"id,omitempty"`
	Enabled  bool   `json:"enabled"`
	Matchers []struct {
		Value string `json:"value"`
	} `json:"matchers"`
	Actions []struct {
		Value []string `json:"value"`
	} `json:"actions"`
}

func (r rulePayload) toDomain() domain.ForwardingRule {
	rule := domain.ForwardingRule{ID: r.ID, Enabled: r.Enabled}
	if len(r.Matchers) > 0 {
		rule.From = r.Matchers[0].Value
	}
	if len(r.Actions) > 0 && len(r.Actions[0].Value) > 0 {
		rule.To = r.Actions[0].Value[0]
	}
	return rule
}

// ListForwardingRules returns the zone's email forwarding rules.
func (c *Client) ListForwardingRules(ctx context.Context, zoneID string) ([]domain.ForwardingRule, error) {
	var rules []rulePayload
	err := c.call(ctx, http.MethodGet, "/zones/"+zoneID+"/email/routing/rules", nil, &rules)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ForwardingRule, len(rules))
	for i, r := range rules {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CreateForwardingRule forwards mail for one address to a destination.
func (c *Client) CreateForwardingRule(ctx context.Context, zoneID, from, to string) (domain.ForwardingRule, error) {
	var created rulePayload
	err := c.call(ctx, http.MethodPost, "/zones/"+zoneID+"/email/routing/rules", map[string]any{
		"enabled": true,
		"matchers": []map[string]string{
			{"type": "literal", "field": "to", "value": from},
		},
		"actions": []map[string]any{
			{"type": "forward", "value": []string{to}},
		},
	}, &created)
	if err != nil {
		return domain.ForwardingRule{}, err
	}
	return created.toDomain(), nil
}

// DeleteForwardingRule removes one forwarding rule.
func (c *Client) DeleteForwardingRule(ctx context.Context, zoneID, ruleID string) error {
	return c.call(ctx, http.MethodDelete, "/zones/"+zoneID+"/email/routing/rules/"+ruleID, nil, nil)
}

// UpdateCatchAll configures the zone's catch-all email rule.
func (c *Client) UpdateCatchAll(ctx context.Context, zoneID, to string, enabled bool) error {
	actions := []map[string]any{{"type": "drop"}}
	if enabled && to != "" {
		actions = []map[string]any{{"type": "forward", "value": []string{to}}}
	}
	return c.call(ctx, http.MethodPut, "/zones/"+zoneID+"/email/routing/rules/catch_all", map[string]any{
		"enabled": enabled,
		"matchers": []map[string]string{
			{"type": "all"},
		},
		"actions": actions,
	}, nil)
}

// VerifyNameservers asks the provider whether the zone's delegation points
// at it. A zone leaves "pending" only once the provider sees itself as
// authoritative, so checking the zone status doubles as an ownership check
// for bring-your-own domains.
func (c *Client) VerifyNameservers(ctx context.Context, zoneID string) (domain.NameserverCheck, error) {
	// Nudge the provider to re-check activation before reading the status.
	// The endpoint fails while a check is already queued; that is fine.
	_ = c.call(ctx, http.MethodPut, "/zones/"+zoneID+"/activation_check", nil, nil)

	zone, err := c.GetZone(ctx, zoneID)
	if err != nil {
		return domain.NameserverCheck{}, err
	}
	return domain.NameserverCheck{
		Active: zone.Status == "active",
		Status: zone.Status,
	}, nil
}
