// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package config provides centralized configuration management for InstaKPI.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file (CONFIG_PATH or config.yaml), then environment variables. A .env
file (DOTENV_PATH, default .env) is loaded into the process environment with
godotenv before the environment layer is read, so the refreshed access token
written there by the token refresher is picked up on restart.

# Environment Variables

Graph API:
  - IG_ACCOUNT_ID: Instagram business account id
  - IG_ACCESS_TOKEN: long-lived access token
  - IG_APP_ID, IG_APP_SECRET: app credentials for token exchange
  - GRAPH_BASE_URL: API host (default: https://graph.facebook.com)
  - GRAPH_API_VERSION: version path segment (default: v21.0)

Sync:
  - SYNC_INTERVAL: cycle period (default: 1h)
  - SYNC_TIMEZONE: zone used to derive snapshot dates (default: UTC)
  - SYNC_PARALLEL_CATEGORIES: run categories concurrently (default: false)

Storage:
  - STORE_BACKEND: duckdb, badger, mongo, postgres or memory (default: duckdb)
  - DUCKDB_PATH, BADGER_PATH, MONGO_URI, POSTGRES_DSN

Token refresh:
  - TOKEN_REFRESH_INTERVAL: default 1200h (50 days)
  - TOKEN_SECRET_STORE: env or badger
  - TOKEN_ENCRYPTION_SECRET: required for the badger secret store

HTTP and fan-out:
  - HTTP_PORT, HTTP_HOST, ENVIRONMENT, CORS_ORIGINS
  - NATS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_JETSTREAM

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER, LOG_FILE

# Thread Safety

A loaded *Config is read-only and safe to share between goroutines.
*/
package config
