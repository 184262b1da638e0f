// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package graph is the Instagram Graph API transport.

The client issues parameterized GET requests and returns loosely typed
records; mapping to domain models happens in the reconcile package.

# Resilience

  - 30 second request timeout (graph.timeout)
  - Client-side pacing with golang.org/x/time/rate (graph.requests_per_second)
  - HTTP 429 handling: exponential backoff (1s, 2s, 4s, 8s, 16s), honouring
    Retry-After, up to graph.max_retries attempts
  - CircuitBreakerClient: sony/gobreaker, opens at >= 60% failures over at
    least 10 requests, 2 minute open period

No other retry happens; a failed call is reported to the caller, which
decides whether the rest of its work continues.

# Response Shapes

Edge endpoints (/{id}/media, /{id}/insights) answer {"data":[...]}, which is
exposed as Response.Data. Node endpoints (/{id}?fields=...) answer a flat
object, exposed as Response.Record. Embedded insights
("insights":{"data":[...]}) are read with Record.Insights.

# Credentials

The access token is a query parameter supplied by the caller. Request URLs
in errors are passed through logging.SanitizeURL so the token never reaches
logs.
*/
package graph
