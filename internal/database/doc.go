// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package database is the default RecordStore backend, built on DuckDB.
//
// # Files
//
//   - database.go: lifecycle (open, initialize, close with checkpoint)
//   - database_connection.go: pool configuration, reconnect with backoff, conflict retry
//   - database_schema.go: posts, stories and account_kpis tables
//   - migrations.go: append-only versioned migrations tracked in schema_migrations
//   - records.go: store.RecordStore implementation
//
// # Upsert semantics
//
// Each upsert is a single INSERT ... ON CONFLICT DO UPDATE in which every
// metric column is COALESCE(excluded.col, table.col), followed by a read of the
// merged row in the same transaction. A per-key mutex serializes upserts of
// the same entity inside the process; DuckDB transaction conflicts are retried
// with exponential backoff (1ms, 2ms, 4ms).
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	merged, err := db.UpsertPost(ctx, &models.Post{PostID: id, Likes: models.Ptr(int64(12))})
//
// The driver is github.com/duckdb/duckdb-go/v2 (CGO).
package database
