// Package caddy implements the domain.EdgeRouter port against the Caddy
// admin API. Routes are tagged with Caddy object ids ("@id") so they can be
// fetched and removed without walking the whole config.
package caddy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/caimari/musedock/internal/domain"
)

const maxErrorBody = 64 * 1024

// Config holds the edge router client configuration.
type Config struct {
	// AdminURL is the Caddy admin endpoint, e.g. "http://127.0.0.1:2019".
	AdminURL string
	// ServerName is the HTTP server key in the Caddy config.
	ServerName string
	// Upstream is the backend address routes proxy to.
	Upstream string
	Timeout  time.Duration
}

// Client is a typed client for the Caddy admin API. It implements
// domain.EdgeRouter.
//
// All admin-API calls run through a circuit breaker: once the admin
// endpoint has failed repeatedly the breaker opens and calls fail fast
// with a KindUnavailable error, so provisioning degrades instead of
// hanging on every request while Caddy is down.
type Client struct {
	adminURL   string
	serverName string
	upstream   string
	admin      *http.Client
	probe      *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

// Compile-time check: Client implements domain.EdgeRouter.
var _ domain.EdgeRouter = (*Client)(nil)

// New creates an edge router client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	serverName := cfg.ServerName
	if serverName == "" {
		serverName = "musedock"
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "caddy-admin",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		adminURL:   strings.TrimRight(cfg.AdminURL, "/"),
		serverName: serverName,
		upstream:   cfg.Upstream,
		admin:      &http.Client{Timeout: timeout},
		probe: &http.Client{
			Timeout: timeout,
			// The probe must report certificate problems, not follow them.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		breaker: breaker,
	}
}

func unavailable(err error) *domain.ExternalError {
	return &domain.ExternalError{
		System:  domain.SystemEdge,
		Kind:    domain.KindUnavailable,
		Message: err.Error(),
	}
}

// do performs one admin-API request through the circuit breaker and returns
// the response body. A nil error with status 404 is reported via errNotFound.
var errNotFound = errors.New("not found")

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.adminURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.admin.Do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, unavailable(err)
		}
		return nil, unavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, unavailable(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode >= 400:
		return nil, &domain.ExternalError{
			System:  domain.SystemEdge,
			Kind:    domain.KindGeneric,
			Code:    fmt.Sprintf("%d", resp.StatusCode),
			Message: fmt.Sprintf("admin api: %.200s", raw),
		}
	}
	return raw, nil
}

// routeID derives the Caddy object id for a domain's route.
func routeID(domainName string) string {
	return "musedock_" + strings.ReplaceAll(domainName, ".", "_")
}

// AddRoute installs a reverse-proxy route for the domain (and optionally
// its www variant) and returns the route id. Installing a route whose id
// already exists replaces it, so repeated provisioning runs are safe.
func (c *Client) AddRoute(ctx context.Context, domainName string, includeWWW bool) (string, error) {
	id := routeID(domainName)

	hosts := []string{domainName}
	if includeWWW {
		hosts = append(hosts, "www."+domainName)
	}

	route := map[string]any{
		"@id": id,
		"match": []map[string]any{
			{"host": hosts},
		},
		"handle": []map[string]any{
			{
				"handler": "reverse_proxy",
				"upstreams": []map[string]string{
					{"dial": c.upstream},
				},
			},
		},
		"terminal": true,
	}

	// Replace an existing route with the same id, otherwise append.
	if _, err := c.do(ctx, http.MethodGet, "/id/"+id, nil); err == nil {
		if _, err := c.do(ctx, http.MethodPatch, "/id/"+id, route); err != nil {
			return "", err
		}
		return id, nil
	} else if !errors.Is(err, errNotFound) {
		return "", err
	}

	path := fmt.Sprintf("/config/apps/http/servers/%s/routes", c.serverName)
	if _, err := c.do(ctx, http.MethodPost, path+"/...", []any{route}); err != nil {
		return "", err
	}
	return id, nil
}

// RemoveRoute deletes a route by id. A missing route is not an error.
func (c *Client) RemoveRoute(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/id/"+id, nil)
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}

// RouteExists reports whether a route with the given id is installed.
func (c *Client) RouteExists(ctx context.Context, id string) (bool, error) {
	_, err := c.do(ctx, http.MethodGet, "/id/"+id, nil)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	return false, err
}

// VerifyDomain probes the live domain over HTTPS to confirm the route
// responds and its certificate is valid.
func (c *Client) VerifyDomain(ctx context.Context, domainName string) (domain.DomainProbe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+domainName+"/", nil)
	if err != nil {
		return domain.DomainProbe{}, fmt.Errorf("building probe request: %w", err)
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		var certErr *tls.CertificateVerificationError
		if errors.As(err, &certErr) {
			// The host answers but TLS is not ready yet.
			return domain.DomainProbe{Responds: true, SSLValid: false}, nil
		}
		return domain.DomainProbe{}, nil
	}
	defer resp.Body.Close()

	return domain.DomainProbe{
		Responds: true,
		SSLValid: true,
		HTTPCode: resp.StatusCode,
	}, nil
}

// Available reports whether the admin API answers its config endpoint.
// It returns false while the circuit breaker is open.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodGet, "/config/", nil)
	return err == nil || errors.Is(err, errNotFound)
}
