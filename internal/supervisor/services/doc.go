// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package services adapts InstaKPI components to suture.Service.

Each wrapper translates one lifecycle into Serve(ctx) error and names itself
through fmt.Stringer so suture's log events identify it:

  - HTTPServerService: ListenAndServe/Shutdown of the API server
  - WebSocketHubService: websocket.Hub.RunWithContext
  - SyncService: Start/Stop of sync.Manager
  - TokenRefreshService: periodic token.Refresher.Refresh
  - NATSService: embedded NATS server and the NATS relay, both of which
    already serve until their context ends

Returning an error from Serve asks suture to restart the service with
backoff. Returning ctx.Err() after cancellation is a clean stop.
*/
package services
