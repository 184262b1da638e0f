// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package api provides the HTTP REST API layer for InstaKPI.

It serves the records kept by the reconcile engine to the dashboard, lets
the dashboard trigger a cycle on demand and upgrades live update
connections onto the websocket hub.

Key Components:

  - Router: chi route configuration and middleware stack
  - Handler: request handlers, split by area across handlers_*.go
  - ResponseWriter: the {success, data, error, meta} JSON envelope
  - ChiMiddleware: go-chi/cors and per-endpoint go-chi/httprate limits

Routes:

 1. Health (/api/v1/health): health, live, ready
 2. Instagram (/api/instagram): posts, posts/{postId}, latest-story,
    account-kpis[?from=&to=], account-kpis/latest, POST refresh
 3. Live updates (/ws/kpi): every message published on kpi-updates as
    {"type":"kpi-updates","data":...}
 4. Development (/api/test, not registered in production): data, send,
    seed, grow
 5. /metrics: Prometheus exposition

List responses are cached in a ristretto-backed cache for ListCacheTTL and
dropped after every cycle via Handler.OnCycleCompleted.

Usage Example:

	handler := api.NewHandler(st, syncMgr, hub, fanout, cfg)
	syncMgr.SetOnCycleCompleted(handler.OnCycleCompleted)
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: api.NewRouter(handler, mw).SetupChi()}
*/
package api
