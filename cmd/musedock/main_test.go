package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/caimari/musedock/internal/adapter/caddy"
	"github.com/caimari/musedock/internal/adapter/cloudflare"
	"github.com/caimari/musedock/internal/adapter/fsm"
	"github.com/caimari/musedock/internal/adapter/openprovider"
	"github.com/caimari/musedock/internal/adapter/sqlite"
	"github.com/caimari/musedock/internal/app"
	"github.com/caimari/musedock/internal/domain"

	handler "github.com/caimari/musedock/internal/adapter/http"
)

// testPublisher is a local EventPublisher for the smoke test.
// The smoke test verifies HTTP wiring, not River.
type testPublisher struct{}

func (p *testPublisher) Publish(_ context.Context, _ domain.Event, _ domain.Tenant) error {
	return nil
}

// testScheduler is a local TaskScheduler for the smoke test.
type testScheduler struct{}

func (s *testScheduler) ScheduleEdgeVerification(_ context.Context, _ string) error { return nil }
func (s *testScheduler) ScheduleNameserverCheck(_ context.Context, _ string) error  { return nil }
func (s *testScheduler) ScheduleMail(_ context.Context, _ domain.Mail) error        { return nil }

// TestSmoke wires the stack like main() and verifies it responds.
func TestSmoke(t *testing.T) {
	dbPath := t.TempDir() + "/test.db"

	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := app.NewProvisioningService(app.Deps{
		Tenants:   store.Tenants,
		Orders:    store.Orders,
		Transfers: store.Transfers,
		Contacts:  store.Contacts,

		Registrar: openprovider.New(openprovider.Config{BaseURL: "http://127.0.0.1:1"}),
		Zones:     cloudflare.New(cloudflare.Config{BaseURL: "http://127.0.0.1:1"}),
		Edge:      caddy.New(caddy.Config{AdminURL: "http://127.0.0.1:1"}),

		Scheduler: &testScheduler{},
		Publisher: &testPublisher{},

		TenantFSM:   fsm.New(domain.Transitions),
		OrderFSM:    fsm.New(domain.OrderTransitions),
		TransferFSM: fsm.New(domain.TransferTransitions),
	}, app.Platform{
		BaseDomain:  "musedock.test",
		IngressHost: "ingress.musedock.test",
	})

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("musedock", "0.1.0"))
	handler.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/v1/tenants", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("X-Customer-ID", "cust-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/v1/tenants failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var tenants []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&tenants); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(tenants) != 0 {
		t.Errorf("got %d tenants, want 0 (empty database)", len(tenants))
	}
}

// TestRun exercises the real run() function end-to-end: OTel, River, HTTP
// server, and graceful shutdown. It uses the stdout OTel exporter and a
// temp database to avoid external dependencies.
func TestRun(t *testing.T) {
	t.Setenv("MUSEDOCK_DATABASE_PATH", t.TempDir()+"/test-run.db")
	t.Setenv("MUSEDOCK_SERVER_PORT", "19876")
	t.Setenv("MUSEDOCK_PLATFORM_BASE_DOMAIN", "musedock.test")
	t.Setenv("MUSEDOCK_PLATFORM_INGRESS_HOST", "ingress.musedock.test")
	t.Setenv("OTEL_EXPORTER", "stdout")
	t.Setenv("OTEL_ENVIRONMENT", "test")

	// Discard OTel stdout exporter output during the test.
	origStdout := os.Stdout
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("opening /dev/null: %v", err)
	}
	os.Stdout = devNull
	t.Cleanup(func() {
		os.Stdout = origStdout
		devNull.Close()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	// Wait for the HTTP server to become ready.
	serverURL := "http://localhost:19876"
	ready := false
	for i := 0; i < 50; i++ {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL+"/api/v1/tenants", nil)
		req.Header.Set("X-Customer-ID", "cust-1")
		resp, reqErr := http.DefaultClient.Do(req)
		if reqErr == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ready {
		t.Fatal("server did not start within 5 seconds")
	}

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL+"/api/v1/tenants", nil)
	req.Header.Set("X-Customer-ID", "cust-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/v1/tenants failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Send SIGINT to trigger graceful shutdown.
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("finding process: %v", err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("sending SIGINT: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not exit within 10 seconds")
	}
}

// TestRun_InvalidDB verifies run() returns an error for an invalid database path.
func TestRun_InvalidDB(t *testing.T) {
	t.Setenv("MUSEDOCK_DATABASE_PATH", "/nonexistent/path/db.sqlite")
	t.Setenv("MUSEDOCK_SERVER_PORT", "19877")
	t.Setenv("MUSEDOCK_PLATFORM_BASE_DOMAIN", "musedock.test")
	t.Setenv("MUSEDOCK_PLATFORM_INGRESS_HOST", "ingress.musedock.test")
	t.Setenv("OTEL_EXPORTER", "stdout")
	t.Setenv("OTEL_ENVIRONMENT", "test")

	// Discard OTel stdout output.
	origStdout := os.Stdout
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("opening /dev/null: %v", err)
	}
	os.Stdout = devNull
	t.Cleanup(func() {
		os.Stdout = origStdout
		devNull.Close()
	})

	if err := run(); err == nil {
		t.Fatal("expected error for invalid database path, got nil")
	}
}
