// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package logging provides centralized zerolog-based structured logging for InstaKPI.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    File:   "/var/log/instakpi/instakpi.log",
//	})
//	defer logging.Close()
//
//	logging.Info().Str("account_id", id).Msg("Cycle started")
//	logging.Ctx(ctx).Err(err).Str("category", "posts").Msg("Category failed")
//
// When File is set, output is also written to a lumberjack rotating file.
//
// # Context Fields
//
// The sync manager stamps each cycle with a cycle_id and the HTTP middleware
// stamps each request with a request_id. Ctx(ctx) attaches both.
//
// # slog Bridge
//
// SlogHandler adapts zerolog to log/slog for suture (via sutureslog) and
// watermill (via watermill.NewSlogLogger).
//
// # Redaction
//
// Access tokens travel as query parameters. Never log a raw Graph URL or a
// transport error; pass them through SanitizeURL or SanitizeError first.
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
package logging
