// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package middleware provides the infrastructure middleware of the HTTP API.

Key Components:

  - RequestID: accepts or generates X-Request-ID and stores it in the
    logging context
  - PrometheusMetrics: request count, latency and in-flight gauge labelled
    by chi route pattern
  - Compression: gzip for bodies of at least CompressMinBytes

All three use the func(http.HandlerFunc) http.HandlerFunc shape; the api
package adapts them to chi's r.Use.

	r.Use(chiMiddleware(middleware.RequestID))
	r.Route("/api/instagram", func(r chi.Router) {
	    r.Use(chiMiddleware(middleware.PrometheusMetrics))
	    r.Use(chiMiddleware(middleware.Compression))
	    r.Get("/posts", handler.Posts)
	})

PrometheusMetrics must run inside the chi router, since the route pattern
is only known after routing.

See Also:

  - internal/api: handlers and router
  - internal/metrics: Prometheus metric definitions
*/
package middleware
