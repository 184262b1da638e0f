// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package models defines the entities reconciled from the Instagram Graph API.

Entities:

  - Post: feed media keyed by the provider media id
  - Story: story media keyed by the provider media id
  - PinnedReel: reel media keyed by the provider media id (fetched, not persisted)
  - AccountKpi: one row per calendar day for the account

Every metric attribute is a pointer. A nil pointer means the value has not
been observed yet; it is not the same as zero. The Merge methods copy only
observed fields, so a partial upstream response never resets a stored value.
Merge replaces pointers and never writes through them, which makes shallow
copies of an entity safe to share.
*/
package models
