package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/caimari/musedock/internal/adapter/caddy"
	"github.com/caimari/musedock/internal/adapter/cloudflare"
	"github.com/caimari/musedock/internal/adapter/fsm"
	"github.com/caimari/musedock/internal/adapter/mail"
	"github.com/caimari/musedock/internal/adapter/openprovider"
	"github.com/caimari/musedock/internal/adapter/otel"
	"github.com/caimari/musedock/internal/adapter/river"
	"github.com/caimari/musedock/internal/adapter/sqlite"
	"github.com/caimari/musedock/internal/app"
	"github.com/caimari/musedock/internal/config"
	"github.com/caimari/musedock/internal/domain"

	handler "github.com/caimari/musedock/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "musedock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	otel.SetupLogger(otel.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "musedock",
	})

	// --- Storage ---
	db, err := otel.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	defer store.Close()

	// --- Job queue ---
	mailer := mail.New(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})

	queue, err := river.Setup(ctx, db, mailer)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	// --- Vendor clients ---
	registrar := openprovider.New(openprovider.Config{
		BaseURL:  cfg.Registrar.BaseURL,
		Username: cfg.Registrar.Username,
		Password: cfg.Registrar.Password,
		Timeout:  cfg.Registrar.Timeout,
	})

	zones := cloudflare.New(cloudflare.Config{
		BaseURL:   cfg.DNS.BaseURL,
		APIToken:  cfg.DNS.APIToken,
		AccountID: cfg.DNS.AccountID,
		Timeout:   cfg.DNS.Timeout,
	})

	edge := caddy.New(caddy.Config{
		AdminURL:   cfg.Edge.AdminURL,
		ServerName: cfg.Edge.ServerName,
		Upstream:   cfg.Edge.Upstream,
		Timeout:    cfg.Edge.Timeout,
	})

	// --- Application ---
	svc := app.NewProvisioningService(app.Deps{
		Tenants:   otel.NewTracingRepository(store.Tenants),
		Orders:    store.Orders,
		Transfers: store.Transfers,
		Contacts:  store.Contacts,

		Registrar: registrar,
		Zones:     zones,
		Edge:      edge,

		Scheduler: river.NewScheduler(queue.Client),
		Publisher: otel.NewTracingPublisher(river.NewPublisher(queue.Client)),

		TenantFSM:   fsm.New(domain.Transitions),
		OrderFSM:    fsm.New(domain.OrderTransitions),
		TransferFSM: fsm.New(domain.TransferTransitions),
	}, app.Platform{
		BaseDomain:   cfg.Platform.BaseDomain,
		SharedZoneID: cfg.Platform.SharedZoneID,
		IngressHost:  cfg.Platform.IngressHost,
		Nameservers:  cfg.Platform.Nameservers,
		SupportEmail: cfg.Platform.SupportEmail,
	})

	queue.Bind(svc)
	if err := queue.Client.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	// --- HTTP ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("musedock", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("musedock", "0.1.0"))
	handler.Register(api, svc)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("musedock listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if err := queue.Client.Stop(shutdownCtx); err != nil {
		slog.Error("river shutdown", "error", err)
	}

	slog.Info("stopped")
	return nil
}
