package caddy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caimari/musedock/internal/adapter/caddy"
	"github.com/caimari/musedock/internal/domain"
)

// fakeAdmin is a minimal Caddy admin API mock. ids holds the installed
// routes keyed by @id.
type fakeAdmin struct {
	ids      map[string]json.RawMessage
	appended []json.RawMessage
}

func newFakeAdmin(t *testing.T) (*fakeAdmin, *caddy.Client) {
	t.Helper()

	admin := &fakeAdmin{ids: map[string]json.RawMessage{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/id/"):
			id := strings.TrimPrefix(r.URL.Path, "/id/")
			switch r.Method {
			case http.MethodGet:
				route, ok := admin.ids[id]
				if !ok {
					http.Error(w, `{"error":"unknown object id"}`, http.StatusNotFound)
					return
				}
				_, _ = w.Write(route)
			case http.MethodPatch:
				var route json.RawMessage
				if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
					t.Errorf("decoding patched route: %v", err)
				}
				admin.ids[id] = route
				w.WriteHeader(http.StatusOK)
			case http.MethodDelete:
				if _, ok := admin.ids[id]; !ok {
					http.Error(w, `{"error":"unknown object id"}`, http.StatusNotFound)
					return
				}
				delete(admin.ids, id)
				w.WriteHeader(http.StatusOK)
			}
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/routes/..."):
			var raw []json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
				t.Errorf("decoding appended routes: %v", err)
			}
			for _, route := range raw {
				var meta struct {
					ID string `json:"@id"`
				}
				_ = json.Unmarshal(route, &meta)
				admin.ids[meta.ID] = route
				admin.appended = append(admin.appended, route)
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/config/":
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	client := caddy.New(caddy.Config{
		AdminURL:   srv.URL,
		ServerName: "musedock",
		Upstream:   "127.0.0.1:8080",
	})
	return admin, client
}

func TestAddRoute(t *testing.T) {
	admin, client := newFakeAdmin(t)

	id, err := client.AddRoute(context.Background(), "ferrer.cat", true)
	if err != nil {
		t.Fatalf("AddRoute failed: %v", err)
	}
	if id != "musedock_ferrer_cat" {
		t.Errorf("route id = %q, want %q", id, "musedock_ferrer_cat")
	}

	route, ok := admin.ids[id]
	if !ok {
		t.Fatal("route was not installed")
	}

	var installed struct {
		Match []struct {
			Host []string `json:"host"`
		} `json:"match"`
		Handle []struct {
			Handler   string `json:"handler"`
			Upstreams []struct {
				Dial string `json:"dial"`
			} `json:"upstreams"`
		} `json:"handle"`
		Terminal bool `json:"terminal"`
	}
	if err := json.Unmarshal(route, &installed); err != nil {
		t.Fatalf("decoding installed route: %v", err)
	}

	if len(installed.Match) != 1 || len(installed.Match[0].Host) != 2 {
		t.Fatalf("match = %+v, want one matcher with two hosts", installed.Match)
	}
	if installed.Match[0].Host[1] != "www.ferrer.cat" {
		t.Errorf("second host = %q, want %q", installed.Match[0].Host[1], "www.ferrer.cat")
	}
	if installed.Handle[0].Handler != "reverse_proxy" || installed.Handle[0].Upstreams[0].Dial != "127.0.0.1:8080" {
		t.Errorf("handle = %+v, want reverse_proxy to 127.0.0.1:8080", installed.Handle)
	}
	if !installed.Terminal {
		t.Error("route should be terminal")
	}
}

func TestAddRoute_WithoutWWW(t *testing.T) {
	admin, client := newFakeAdmin(t)

	id, err := client.AddRoute(context.Background(), "acme.musedock.net", false)
	if err != nil {
		t.Fatalf("AddRoute failed: %v", err)
	}

	var installed struct {
		Match []struct {
			Host []string `json:"host"`
		} `json:"match"`
	}
	if err := json.Unmarshal(admin.ids[id], &installed); err != nil {
		t.Fatalf("decoding installed route: %v", err)
	}
	if len(installed.Match[0].Host) != 1 {
		t.Errorf("hosts = %v, want only the apex", installed.Match[0].Host)
	}
}

func TestAddRoute_ReplacesExisting(t *testing.T) {
	admin, client := newFakeAdmin(t)
	admin.ids["musedock_ferrer_cat"] = json.RawMessage(`{"@id":"musedock_ferrer_cat"}`)

	id, err := client.AddRoute(context.Background(), "ferrer.cat", true)
	if err != nil {
		t.Fatalf("AddRoute failed: %v", err)
	}
	if id != "musedock_ferrer_cat" {
		t.Errorf("route id = %q, want %q", id, "musedock_ferrer_cat")
	}
	if len(admin.appended) != 0 {
		t.Error("existing route should be patched, not appended")
	}
}

func TestRemoveRoute(t *testing.T) {
	admin, client := newFakeAdmin(t)
	admin.ids["musedock_ferrer_cat"] = json.RawMessage(`{}`)

	if err := client.RemoveRoute(context.Background(), "musedock_ferrer_cat"); err != nil {
		t.Fatalf("RemoveRoute failed: %v", err)
	}
	if _, ok := admin.ids["musedock_ferrer_cat"]; ok {
		t.Error("route should be removed")
	}
}

func TestRemoveRoute_MissingIsNotAnError(t *testing.T) {
	_, client := newFakeAdmin(t)

	if err := client.RemoveRoute(context.Background(), "musedock_gone_example"); err != nil {
		t.Errorf("RemoveRoute on missing id should succeed, got: %v", err)
	}
}

func TestRouteExists(t *testing.T) {
	admin, client := newFakeAdmin(t)
	admin.ids["musedock_ferrer_cat"] = json.RawMessage(`{}`)

	exists, err := client.RouteExists(context.Background(), "musedock_ferrer_cat")
	if err != nil {
		t.Fatalf("RouteExists failed: %v", err)
	}
	if !exists {
		t.Error("route should exist")
	}

	exists, err = client.RouteExists(context.Background(), "musedock_other")
	if err != nil {
		t.Fatalf("RouteExists failed: %v", err)
	}
	if exists {
		t.Error("route should not exist")
	}
}

func TestAvailable(t *testing.T) {
	_, client := newFakeAdmin(t)

	if !client.Available(context.Background()) {
		t.Error("admin API should be reported available")
	}
}

func TestUnreachableAdmin(t *testing.T) {
	client := caddy.New(caddy.Config{
		AdminURL: "http://127.0.0.1:1", // nothing listening
		Upstream: "127.0.0.1:8080",
	})

	ctx := context.Background()

	if client.Available(ctx) {
		t.Error("admin API should be reported unavailable")
	}

	_, err := client.AddRoute(ctx, "ferrer.cat", false)
	var extErr *domain.ExternalError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalError, got %v", err)
	}
	if extErr.Kind != domain.KindUnavailable {
		t.Errorf("Kind = %v, want KindUnavailable", extErr.Kind)
	}
	if extErr.System != domain.SystemEdge {
		t.Errorf("System = %v, want SystemEdge", extErr.System)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := caddy.New(caddy.Config{
		AdminURL: "http://127.0.0.1:1",
		Upstream: "127.0.0.1:8080",
	})

	ctx := context.Background()

	// Trip the breaker, then confirm calls keep failing fast with the
	// unavailable kind rather than a different error shape.
	for range 5 {
		_, err := client.RouteExists(ctx, "musedock_ferrer_cat")
		var extErr *domain.ExternalError
		if !errors.As(err, &extErr) {
			t.Fatalf("expected ExternalError, got %v", err)
		}
		if extErr.Kind != domain.KindUnavailable {
			t.Fatalf("Kind = %v, want KindUnavailable", extErr.Kind)
		}
	}
}
