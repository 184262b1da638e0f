// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package store defines the RecordStore contract shared by every persistence
// backend.
//
// Backends:
//   - database (DuckDB, default): internal/database
//   - badgerstore: embedded key-value store
//   - mongostore: MongoDB collections
//   - pgstore: PostgreSQL via pgx
//   - memstore: in-process maps, used in tests and the "memory" backend
//
// Absence is not an error: Find* and Latest* return (nil, nil). Upserts merge
// field by field and never clear an observed value with nil. The storetest
// package runs the same contract suite against each backend.
package store
