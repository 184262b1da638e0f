// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package sync schedules reconciliation cycles.

Manager runs one cycle per sync.interval (optionally one at startup) and
exposes TriggerSync for manual runs from the REST API. Each run builds a fresh
reconcile.Snapshot through SnapshotSource, so a token persisted by the
refresh service is picked up on the next cycle without any shared state.

Overlapping cycles are allowed. The record stores upsert atomically per key
with field-level merge, so two cycles racing on the same post converge.

Usage:

	source := sync.NewSnapshotSource(cfg.Graph.AccountID, tokens)
	mgr := sync.NewManager(engine, source, &cfg.Sync)
	tree.AddDataService(services.NewSyncService(mgr))
*/
package sync
