// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package main is the entry point for the InstaKPI server.
//
// InstaKPI periodically pulls post, story and account metrics for one
// Instagram professional account from the Graph API, merges them into a
// record store, derives daily follower growth and pushes every change to
// connected dashboards over WebSocket (and optionally NATS).
//
// # Commands
//
//	instakpi serve           run the scheduler, token refresh loop and HTTP API (default)
//	instakpi cycle           run one reconciliation cycle and exit
//	instakpi refresh-token   exchange the stored access token once and exit
//	instakpi seed [--grow]   insert or grow the TEST_1..TEST_5 posts
//	instakpi version         print the build version
//
// # Application Architecture
//
// serve initializes components in the following order:
//
//  1. Configuration: .env, config.yaml and environment (Koanf v2)
//  2. Logging: zerolog, optionally teed to a rotated file
//  3. Record store: DuckDB, Badger, MongoDB, PostgreSQL or memory
//  4. Secret store and token source: env file or encrypted Badger
//  5. Update channel: WebSocket hub, plus NATS when NATS_ENABLED=true
//  6. Reconcile engine and cycle scheduler
//  7. HTTP server: REST API, /ws/kpi and /metrics
//
// Everything long-running runs under a suture supervisor tree with data,
// messaging and api layers.
//
// # Configuration
//
// Minimal setup:
//
//	export IG_ACCOUNT_ID=17841400000000000
//	export IG_ACCESS_TOKEN=EAAB...
//	./instakpi serve
//
// With a Badger-backed encrypted token store and NATS fan-out:
//
//	export STORE_BACKEND=badger
//	export TOKEN_SECRET_STORE=badger
//	export TOKEN_ENCRYPTION_SECRET=$(openssl rand -base64 32)
//	export NATS_ENABLED=true
//	export NATS_EMBEDDED=true
//	./instakpi serve
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor drains the HTTP
// server within HTTP_TIMEOUT and stops the scheduler and messaging services;
// the stores are closed last.
package main
