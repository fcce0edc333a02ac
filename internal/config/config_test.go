package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "musedock.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
}

func TestLoad_Defaults(t *testing.T) {
	// The ingress host has no default and must come from somewhere.
	t.Setenv("MUSEDOCK_PLATFORM_INGRESS_HOST", "ingress.musedock.net")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Path != "musedock.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "musedock.db")
	}
	if cfg.Platform.BaseDomain != "musedock.net" {
		t.Errorf("Platform.BaseDomain = %q, want %q", cfg.Platform.BaseDomain, "musedock.net")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	writeConfigFile(t, `
server:
  port: 9090
platform:
  base_domain: example.org
  ingress_host: edge.example.org
  nameservers:
    - ana.ns.example.org
    - bob.ns.example.org
dns:
  api_token: file-token
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Platform.BaseDomain != "example.org" {
		t.Errorf("Platform.BaseDomain = %q, want %q", cfg.Platform.BaseDomain, "example.org")
	}
	if len(cfg.Platform.Nameservers) != 2 {
		t.Errorf("got %d nameservers, want 2", len(cfg.Platform.Nameservers))
	}
	if cfg.DNS.APIToken != "file-token" {
		t.Errorf("DNS.APIToken = %q, want %q", cfg.DNS.APIToken, "file-token")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	writeConfigFile(t, `
server:
  port: 9090
platform:
  ingress_host: edge.example.org
`)
	t.Setenv("MUSEDOCK_SERVER_PORT", "7070")
	t.Setenv("MUSEDOCK_DNS_API_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.DNS.APIToken != "env-token" {
		t.Errorf("DNS.APIToken = %q, want %q", cfg.DNS.APIToken, "env-token")
	}
}

func TestLoad_EnvNameserverList(t *testing.T) {
	t.Setenv("MUSEDOCK_PLATFORM_INGRESS_HOST", "ingress.musedock.net")
	t.Setenv("MUSEDOCK_PLATFORM_NAMESERVERS", "ana.ns.example.com, bob.ns.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"ana.ns.example.com", "bob.ns.example.com"}
	if len(cfg.Platform.Nameservers) != len(want) {
		t.Fatalf("got %d nameservers, want %d", len(cfg.Platform.Nameservers), len(want))
	}
	for i, ns := range want {
		if cfg.Platform.Nameservers[i] != ns {
			t.Errorf("nameserver[%d] = %q, want %q", i, cfg.Platform.Nameservers[i], ns)
		}
	}
}

func TestLoad_UnknownEnvIgnored(t *testing.T) {
	t.Setenv("MUSEDOCK_PLATFORM_INGRESS_HOST", "ingress.musedock.net")
	t.Setenv("MUSEDOCK_NOT_A_SETTING", "value")

	if _, err := Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(_ *Config) {}, false},
		{"missing base domain", func(c *Config) { c.Platform.BaseDomain = "" }, true},
		{"missing ingress host", func(c *Config) { c.Platform.IngressHost = "" }, true},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Platform.IngressHost = "ingress.musedock.net"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
