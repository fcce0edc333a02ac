package cloudflare_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caimari/musedock/internal/adapter/cloudflare"
	"github.com/caimari/musedock/internal/domain"
)

// fakeAPI is a minimal Cloudflare mock keyed by "METHOD path".
type fakeAPI struct {
	t        *testing.T
	handlers map[string]http.HandlerFunc
}

func newFakeAPI(t *testing.T) (*fakeAPI, *cloudflare.Client) {
	t.Helper()

	api := &fakeAPI{t: t, handlers: map[string]http.HandlerFunc{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer cf-token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer cf-token")
		}
		h, ok := api.handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			writeResult(w, false, nil, apiErr(999, "no handler"))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client := cloudflare.New(cloudflare.Config{
		BaseURL:   srv.URL,
		APIToken:  "cf-token",
		AccountID: "acc-1",
	})
	return api, client
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func apiErr(code int, message string) []apiMessage {
	return []apiMessage{{Code: code, Message: message}}
}

func writeResult(w http.ResponseWriter, success bool, result any, errs []apiMessage) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"errors":  errs,
		"result":  json.RawMessage(raw),
	})
}

func TestCreateZone(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["POST /zones"] = func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name    string `json:"name"`
			Account struct {
				ID string `json:"id"`
			} `json:"account"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding zone request: %v", err)
		}
		if body.Name != "ferrer.cat" {
			t.Errorf("name = %q, want %q", body.Name, "ferrer.cat")
		}
		if body.Account.ID != "acc-1" {
			t.Errorf("account id = %q, want %q", body.Account.ID, "acc-1")
		}
		writeResult(w, true, map[string]any{
			"id":           "zone-1",
			"name":         "ferrer.cat",
			"status":       "pending",
			"name_servers": []string{"ana.ns.cloudflare.com", "bob.ns.cloudflare.com"},
		}, nil)
	}

	zone, err := client.CreateZone(context.Background(), "ferrer.cat")
	if err != nil {
		t.Fatalf("CreateZone failed: %v", err)
	}
	if zone.ID != "zone-1" || zone.Status != "pending" {
		t.Errorf("zone = %+v, want zone-1 pending", zone)
	}
	if len(zone.Nameservers) != 2 {
		t.Errorf("got %d nameservers, want 2", len(zone.Nameservers))
	}
}

func TestCreateZone_AlreadyExistsRecovers(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["POST /zones"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, false, nil, apiErr(1061, "zone already exists"))
	}
	api.handlers["GET /zones"] = func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "ferrer.cat" {
			t.Errorf("lookup name = %q, want %q", got, "ferrer.cat")
		}
		writeResult(w, true, []map[string]any{{
			"id":           "zone-existing",
			"name":         "ferrer.cat",
			"status":       "active",
			"name_servers": []string{"ana.ns.cloudflare.com"},
		}}, nil)
	}

	zone, err := client.CreateZone(context.Background(), "ferrer.cat")
	if err != nil {
		t.Fatalf("CreateZone failed: %v", err)
	}
	if zone.ID != "zone-existing" {
		t.Errorf("zone ID = %q, want %q", zone.ID, "zone-existing")
	}
}

func TestCreateZone_OtherErrorPropagates(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["POST /zones"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, false, nil, apiErr(1099, "invalid domain"))
	}

	_, err := client.CreateZone(context.Background(), "bad domain")

	var extErr *domain.ExternalError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalError, got %v", err)
	}
	if extErr.Kind != domain.KindGeneric {
		t.Errorf("Kind = %v, want KindGeneric", extErr.Kind)
	}
	if extErr.System != domain.SystemDNS {
		t.Errorf("System = %v, want SystemDNS", extErr.System)
	}
}

func TestEnsureCNAME_SkipsEquivalentRecord(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["GET /zones/zone-1/dns_records"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, true, []map[string]any{{
			"id":      "rec-1",
			"type":    "CNAME",
			"name":    "ferrer.cat",
			"content": "Ingress.Musedock.Net.",
			"ttl":     1,
			"proxied": false,
		}}, nil)
	}
	// No POST handler: creating would fail the test.

	err := client.EnsureCNAME(context.Background(), "zone-1", "ferrer.cat", "ingress.musedock.net", false)
	if err != nil {
		t.Fatalf("EnsureCNAME failed: %v", err)
	}
}

func TestEnsureCNAME_CreatesMissingRecord(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["GET /zones/zone-1/dns_records"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, true, []map[string]any{}, nil)
	}

	created := false
	api.handlers["POST /zones/zone-1/dns_records"] = func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Type    string `json:"type"`
			Name    string `json:"name"`
			Content string `json:"content"`
			Proxied bool   `json:"proxied"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding record request: %v", err)
		}
		if body.Type != "CNAME" || body.Name != "www.ferrer.cat" || body.Content != "ingress.musedock.net" {
			t.Errorf("record = %+v, want www CNAME to ingress", body)
		}
		if !body.Proxied {
			t.Error("record should be proxied")
		}
		created = true
		writeResult(w, true, map[string]any{"id": "rec-new", "type": "CNAME"}, nil)
	}

	err := client.EnsureCNAME(context.Background(), "zone-1", "www.ferrer.cat", "ingress.musedock.net", true)
	if err != nil {
		t.Fatalf("EnsureCNAME failed: %v", err)
	}
	if !created {
		t.Error("record was not created")
	}
}

func TestEnsureCNAME_ToleratesDuplicateRace(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["GET /zones/zone-1/dns_records"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, true, []map[string]any{}, nil)
	}
	api.handlers["POST /zones/zone-1/dns_records"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, false, nil, apiErr(81057, "record already exists"))
	}

	err := client.EnsureCNAME(context.Background(), "zone-1", "ferrer.cat", "ingress.musedock.net", false)
	if err != nil {
		t.Fatalf("EnsureCNAME should tolerate duplicates, got: %v", err)
	}
}

func TestVerifyNameservers(t *testing.T) {
	api, client := newFakeAPI(t)

	checked := false
	api.handlers["PUT /zones/zone-1/activation_check"] = func(w http.ResponseWriter, _ *http.Request) {
		checked = true
		writeResult(w, false, nil, apiErr(1224, "check already in progress"))
	}
	api.handlers["GET /zones/zone-1"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, true, map[string]any{
			"id":     "zone-1",
			"name":   "ferrer.cat",
			"status": "active",
		}, nil)
	}

	check, err := client.VerifyNameservers(context.Background(), "zone-1")
	if err != nil {
		t.Fatalf("VerifyNameservers failed: %v", err)
	}
	if !checked {
		t.Error("activation check was not triggered")
	}
	if !check.Active || check.Status != "active" {
		t.Errorf("check = %+v, want active", check)
	}
}

func TestListForwardingRules(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["GET /zones/zone-1/email/routing/rules"] = func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, true, []map[string]any{{
			"id":       "rule-1",
			"enabled":  true,
			"matchers": []map[string]any{{"type": "literal", "field": "to", "value": "info@ferrer.cat"}},
			"actions":  []map[string]any{{"type": "forward", "value": []string{"maria@example.com"}}},
		}}, nil)
	}

	rules, err := client.ListForwardingRules(context.Background(), "zone-1")
	if err != nil {
		t.Fatalf("ListForwardingRules failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	if rules[0].From != "info@ferrer.cat" || rules[0].To != "maria@example.com" {
		t.Errorf("rule = %+v, want info@ferrer.cat forwarding to maria@example.com", rules[0])
	}
}

func TestCreateForwardingRule(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["POST /zones/zone-1/email/routing/rules"] = func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Enabled  bool `json:"enabled"`
			Matchers []struct {
				Value string `json:"value"`
			} `json:"matchers"`
			Actions []struct {
				Value []string `json:"value"`
			} `json:"actions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding rule request: %v", err)
		}
		if !body.Enabled || len(body.Matchers) != 1 || body.Matchers[0].Value != "info@ferrer.cat" {
			t.Errorf("rule request = %+v, want enabled matcher on info@ferrer.cat", body)
		}
		writeResult(w, true, map[string]any{
			"id":       "rule-new",
			"enabled":  true,
			"matchers": []map[string]any{{"value": "info@ferrer.cat"}},
			"actions":  []map[string]any{{"value": []string{"maria@example.com"}}},
		}, nil)
	}

	rule, err := client.CreateForwardingRule(context.Background(), "zone-1", "info@ferrer.cat", "maria@example.com")
	if err != nil {
		t.Fatalf("CreateForwardingRule failed: %v", err)
	}
	if rule.ID != "rule-new" {
		t.Errorf("rule ID = %q, want %q", rule.ID, "rule-new")
	}
}

func TestUpdateCatchAll_DisabledDrops(t *testing.T) {
	api, client := newFakeAPI(t)

	api.handlers["PUT /zones/zone-1/email/routing/rules/catch_all"] = func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Enabled bool `json:"enabled"`
			Actions []struct {
				Type string `json:"type"`
			} `json:"actions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding catch-all request: %v", err)
		}
		if body.Enabled {
			t.Error("catch-all should be disabled")
		}
		if len(body.Actions) != 1 || body.Actions[0].Type != "drop" {
			t.Errorf("actions = %+v, want single drop", body.Actions)
		}
		writeResult(w, true, nil, nil)
	}

	if err := client.UpdateCatchAll(context.Background(), "zone-1", "", false); err != nil {
		t.Fatalf("UpdateCatchAll failed: %v", err)
	}
}

func TestTransportError(t *testing.T) {
	client := cloudflare.New(cloudflare.Config{
		BaseURL:  "http://127.0.0.1:1", // nothing listening
		APIToken: "cf-token",
	})

	_, err := client.GetZone(context.Background(), "zone-1")

	var extErr *domain.ExternalError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalError, got %v", err)
	}
	if extErr.Kind != domain.KindUnavailable {
		t.Errorf("Kind = %v, want KindUnavailable", extErr.Kind)
	}
}
