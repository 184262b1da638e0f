// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package supervisor runs every long-lived InstaKPI service under a suture v4
tree.

# Layout

	root ("instakpi")
	├── data-layer
	│   ├── sync-manager        reconciliation cycle scheduler
	│   └── token-refresh       long-lived token exchange loop
	├── messaging-layer
	│   ├── websocket-hub       /ws/kpi fan-out
	│   ├── nats-server         embedded NATS (nats.embedded_server)
	│   └── nats-relay          NATS to websocket relay (nats.enabled)
	└── api-layer
	    └── http-server         REST API, health, metrics

A crash in one layer restarts only that layer's services. The scheduler and
the refresh loop sit in the same layer but share no state: the refresh loop
writes the secret store and the scheduler reads it when it builds the next
snapshot.

# Restart policy

TreeConfig carries suture's failure counter settings. Failures decay
exponentially over FailureDecay seconds; above FailureThreshold the
supervisor waits FailureBackoff before restarting. ShutdownTimeout bounds how
long each service gets to return after its context is canceled, and
UnstoppedServiceReport lists the ones that did not.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewSyncService(mgr))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	return tree.Serve(ctx)

Suture events (service panics, restarts, backoff) are logged through
sutureslog on the shared slog logger.
*/
package supervisor
