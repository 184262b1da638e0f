// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package metrics defines the Prometheus collectors for InstaKPI.
//
// All collectors are registered on the default registry through promauto
// and served at /metrics by the api package.
//
// Cycle metrics:
//   - instakpi_cycle_duration_seconds, instakpi_cycles_total{outcome}
//   - instakpi_category_errors_total{category,error_type}
//   - instakpi_records_upserted_total{entity}
//
// Upstream:
//   - graph_api_requests_total{endpoint,status}, graph_api_rate_limit_retries_total
//   - circuit_breaker_* per breaker name (graph-api, graph-token)
//
// Outbound:
//   - instakpi_updates_published_total{channel,result}
//   - websocket_connections
//
// Example PromQL:
//
//	rate(instakpi_category_errors_total{error_type="transport"}[1h])
//	time() - instakpi_cycle_last_success_timestamp > 7200
package metrics
