// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import "github.com/tomtom215/instakpi/internal/models"

// DeriveNewFollowers returns today's follower count minus yesterday's. The
// result is an explicit 0 when either snapshot or either count is missing.
// Negative deltas are returned as is.
func DeriveNewFollowers(today, yesterday *models.AccountKpi) int64 {
	if today == nil || yesterday == nil || today.Followers == nil || yesterday.Followers == nil {
		return 0
	}
	return *today.Followers - *yesterday.Followers
}
