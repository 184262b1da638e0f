// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/instakpi/internal/api"
	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/publish"
	"github.com/tomtom215/instakpi/internal/reconcile"
	"github.com/tomtom215/instakpi/internal/supervisor"
	"github.com/tomtom215/instakpi/internal/supervisor/services"
	"github.com/tomtom215/instakpi/internal/sync"
	"github.com/tomtom215/instakpi/internal/token"
	ws "github.com/tomtom215/instakpi/internal/websocket"
)

// cycleBreakerName names the circuit breaker around the cycle's Graph client.
const cycleBreakerName = "graph-cycle"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, token refresh loop and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

// newEngine wires the breaker-wrapped Graph client into a reconcile engine
// that publishes to ch.
func newEngine(cfg *config.Config, a *app, ch publish.Channel) *reconcile.Engine {
	client := graph.NewCircuitBreakerClient(cycleBreakerName, graph.NewClient(&cfg.Graph))
	return reconcile.NewEngine(client, a.store, ch, &cfg.Sync)
}

//nolint:gocyclo // sequential setup steps
func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	logging.Info().
		Str("version", version).
		Str("store_backend", cfg.Store.Backend).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Bool("token_refresh_enabled", cfg.Token.Enabled).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting InstaKPI with supervisor tree")
	metrics.SetAppInfo(version, cfg.Store.Backend)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open stores")
		return err
	}
	defer a.Close()

	if cfg.Graph.AccountID == "" {
		logging.Warn().Msg("IG_ACCOUNT_ID is not set; cycles will be skipped until it is configured")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// The hub is both the local update channel and the relay target.
	wsHub := ws.NewHub()
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))

	natsComponents, err := InitNATS(ctx, &cfg.NATS, wsHub)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize NATS")
		return err
	}
	defer natsComponents.Shutdown(context.Background())

	channels := []publish.Channel{wsHub}
	if natsComponents != nil {
		if natsComponents.server != nil {
			tree.AddMessagingService(services.NewNATSServerService(natsComponents.server))
		}
		tree.AddMessagingService(services.NewNATSRelayService(natsComponents.relay))
		channels = append(channels, natsComponents.Channel())
	}
	fanout := publish.NewFanout(channels...)

	engine := newEngine(cfg, a, fanout)
	syncManager := sync.NewManager(engine, sync.NewSnapshotSource(cfg.Graph.AccountID, a.tokens), &cfg.Sync)
	if cfg.Sync.Enabled {
		tree.AddDataService(services.NewSyncService(syncManager))
	} else {
		logging.Info().Msg("Scheduled cycles disabled (SYNC_ENABLED=false); POST /api/instagram/refresh still works")
	}

	if cfg.Token.Enabled {
		refresher := token.NewRefresher(token.NewClient(&cfg.Graph), a.secrets, &cfg.Graph, &cfg.Token)
		tree.AddDataService(services.NewTokenRefreshService(refresher, cfg.Token.RefreshInterval))
	}

	handler := api.NewHandler(a.store, syncManager, wsHub, fanout, cfg)
	handler.SetVersion(version)
	defer handler.Close()
	syncManager.SetOnCycleCompleted(handler.OnCycleCompleted)

	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// POST /refresh runs a whole cycle before answering.
		WriteTimeout: cfg.Sync.CycleTimeout + cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	logging.Info().Str("addr", server.Addr).Msg("HTTP server configured")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errCh := tree.ServeBackground(ctx)

	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	case <-ctx.Done():
	}

	err = <-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("InstaKPI stopped")
	return nil
}
