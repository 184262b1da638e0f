// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package reconcile runs the fetch, reconcile, derive and broadcast cycle.

One cycle walks four independent categories:

  - posts: recent feed media with likes, comments and reach/impressions/saves
    insights, upserted by post id and published as one batch
  - pinned-reel: a bounded window of media filtered for the first reel; it is
    logged but not persisted
  - latest-story: the most recent story with its insights
  - account-kpis: the trailing daily reach series, today's follower count and
    profile views, and the derived day-over-day new follower count

Failure Isolation:

Every category runs behind its own recover. Transport failures (Graph API
errors, timeouts, malformed payloads) and persistence failures (store
rejections) are logged with the cycle id, counted in
instakpi_category_errors_total and never escape RunCycle. A failure inside a
category affects only the rest of that category step: per-item failures in
posts and per-date failures in the reach series leave the other items
untouched.

Usage:

	engine := reconcile.NewEngine(client, recordStore, channel, &cfg.Sync)
	engine.RunCycle(ctx, reconcile.Snapshot{
	    AccountID:   cfg.Graph.AccountID,
	    AccessToken: token,
	})

The access token travels in the Snapshot. The engine keeps no entity state
between cycles, so overlapping cycles converge through the store's per-key
merge upserts.
*/
package reconcile
