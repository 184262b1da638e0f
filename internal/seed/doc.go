// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package seed generates development data for dashboards running without a
Graph API account.

Seed inserts five posts TEST_1 to TEST_5, one per day going back from today,
with random engagement. Grow then simulates engagement growth on the stored
posts. Both go through the regular RecordStore upserts, so seeded rows follow
the same merge rules as reconciled ones.

Seeding is refused in production (see api.Router and the seed command).
*/
package seed
