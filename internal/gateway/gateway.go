// ABOUTME: Gateway orchestration: wires store, registry, auth, license client and HTTP surfaces
// ABOUTME: Owns the HTTP server lifecycle including graceful shutdown

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/anglerworks/angler-gateway/internal/api"
	"github.com/anglerworks/angler-gateway/internal/auth"
	"github.com/anglerworks/angler-gateway/internal/config"
	"github.com/anglerworks/angler-gateway/internal/license"
	"github.com/anglerworks/angler-gateway/internal/metrics"
	"github.com/anglerworks/angler-gateway/internal/realtime"
	"github.com/anglerworks/angler-gateway/internal/session"
	"github.com/anglerworks/angler-gateway/internal/store"
	"github.com/anglerworks/angler-gateway/internal/webadmin"
)

// Gateway is the composition root: every subsystem is created here and
// shares one store and one session registry.
type Gateway struct {
	config     *config.Config
	store      store.Store
	registry   *session.Registry
	metrics    *metrics.Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// New builds a gateway from configuration. The returned gateway owns the
// store; Shutdown closes it.
func New(cfg *config.Config) (*Gateway, error) {
	logger := slog.Default()

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("configuring token verifier: %w", err)
	}

	registry := session.NewRegistry(logger)
	licenseClient := license.NewClient(cfg.License.URL, cfg.License.ProjectID, cfg.License.Timeout)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	gw := &Gateway{
		config:   cfg,
		store:    s,
		registry: registry,
		metrics:  m,
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	apiHandler := api.New(s, verifier, licenseClient, cfg.Auth.TokenTTL, logger)
	apiHandler.Routes(mux)

	mux.Handle("GET /ws", &realtime.Handler{
		Verifier:    verifier,
		Registry:    registry,
		Recorder:    s,
		Metrics:     m,
		AuthTimeout: cfg.Auth.WSAuthTimeout,
		Logger:      logger.With("component", "realtime"),
	})

	if cfg.Admin.PasswordHash != "" {
		admin := webadmin.New(s, registry, licenseClient, webadmin.Config{
			PasswordHash: cfg.Admin.PasswordHash,
			BaseURL:      cfg.Admin.BaseURL,
		})
		admin.RegisterRoutes(mux)
	} else {
		logger.Warn("admin.password_hash not set, admin panel disabled")
	}

	if m != nil {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already
// canceled by the time shutdown starts.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error

	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	g.logger.Info("gateway stopped")
	return nil
}
