// Package config loads layered configuration: built-in defaults, an
// optional YAML file, then MUSEDOCK_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the config file is searched, in order.
var DefaultConfigPaths = []string{
	"musedock.yaml",
	"musedock.yml",
	"/etc/musedock/config.yaml",
	"/etc/musedock/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "MUSEDOCK_CONFIG"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Registrar RegistrarConfig `koanf:"registrar"`
	DNS       DNSConfig       `koanf:"dns"`
	Edge      EdgeConfig      `koanf:"edge"`
	Mail      MailConfig      `koanf:"mail"`
	Platform  PlatformConfig  `koanf:"platform"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// RegistrarConfig holds the OpenProvider API credentials.
type RegistrarConfig struct {
	BaseURL  string        `koanf:"base_url"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	Timeout  time.Duration `koanf:"timeout"`
}

// DNSConfig holds the Cloudflare API settings.
type DNSConfig struct {
	BaseURL   string        `koanf:"base_url"`
	APIToken  string        `koanf:"api_token"`
	AccountID string        `koanf:"account_id"`
	Timeout   time.Duration `koanf:"timeout"`
}

// EdgeConfig holds the Caddy admin API settings.
type EdgeConfig struct {
	AdminURL   string        `koanf:"admin_url"`
	ServerName string        `koanf:"server_name"`
	Upstream   string        `koanf:"upstream"`
	Timeout    time.Duration `koanf:"timeout"`
}

// MailConfig holds the SMTP relay settings.
type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// PlatformConfig holds the provisioning topology: the shared base domain,
// the zone subdomains live in, where edge traffic lands and which
// nameservers custom domains must delegate to.
type PlatformConfig struct {
	BaseDomain   string   `koanf:"base_domain"`
	SharedZoneID string   `koanf:"shared_zone_id"`
	IngressHost  string   `koanf:"ingress_host"`
	Nameservers  []string `koanf:"nameservers"`
	SupportEmail string   `koanf:"support_email"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "musedock.db",
		},
		Registrar: RegistrarConfig{
			BaseURL: "https://api.openprovider.eu/v1beta",
			Timeout: 30 * time.Second,
		},
		DNS: DNSConfig{
			BaseURL: "https://api.cloudflare.com/client/v4",
			Timeout: 30 * time.Second,
		},
		Edge: EdgeConfig{
			AdminURL:   "http://127.0.0.1:2019",
			ServerName: "musedock",
			Upstream:   "127.0.0.1:8080",
			Timeout:    10 * time.Second,
		},
		Mail: MailConfig{
			Host: "127.0.0.1",
			Port: 25,
			From: "noreply@musedock.net",
		},
		Platform: PlatformConfig{
			BaseDomain:   "musedock.net",
			SupportEmail: "support@musedock.net",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// environment variables, highest priority last.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// MUSEDOCK_SERVER_PORT -> server.port, MUSEDOCK_DNS_API_TOKEN ->
	// dns.api_token. Unknown variables are dropped instead of polluting
	// the tree.
	envProvider := env.Provider("MUSEDOCK_", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if err := coerceNameservers(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no workable default.
func (c *Config) Validate() error {
	if c.Platform.BaseDomain == "" {
		return fmt.Errorf("platform.base_domain must be set")
	}
	if c.Platform.IngressHost == "" {
		return fmt.Errorf("platform.ingress_host must be set")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings translates flattened environment names to config paths. Only
// listed variables are honored.
var envMappings = map[string]string{
	"server_host":             "server.host",
	"server_port":             "server.port",
	"server_shutdown_timeout": "server.shutdown_timeout",

	"database_path": "database.path",

	"registrar_base_url": "registrar.base_url",
	"registrar_username": "registrar.username",
	"registrar_password": "registrar.password",
	"registrar_timeout":  "registrar.timeout",

	"dns_base_url":   "dns.base_url",
	"dns_api_token":  "dns.api_token",
	"dns_account_id": "dns.account_id",
	"dns_timeout":    "dns.timeout",

	"edge_admin_url":   "edge.admin_url",
	"edge_server_name": "edge.server_name",
	"edge_upstream":    "edge.upstream",
	"edge_timeout":     "edge.timeout",

	"mail_host":     "mail.host",
	"mail_port":     "mail.port",
	"mail_username": "mail.username",
	"mail_password": "mail.password",
	"mail_from":     "mail.from",

	"platform_base_domain":    "platform.base_domain",
	"platform_shared_zone_id": "platform.shared_zone_id",
	"platform_ingress_host":   "platform.ingress_host",
	"platform_nameservers":    "platform.nameservers",
	"platform_support_email":  "platform.support_email",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "MUSEDOCK_"))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// coerceNameservers splits a comma-separated nameserver list coming from
// the environment into a slice.
func coerceNameservers(k *koanf.Koanf) error {
	const path = "platform.nameservers"
	val := k.Get(path)
	strVal, ok := val.(string)
	if !ok || strVal == "" {
		return nil
	}
	parts := strings.Split(strVal, ",")
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	if err := k.Set(path, trimmed); err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	return nil
}
