// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/models"
)

// Insight metric names requested from the Graph API.
const (
	metricReach         = "reach"
	metricImpressions   = "impressions"
	metricSaved         = "saved"
	metricReplies       = "replies"
	metricShares        = "shares"
	metricProfileVisits = "profile_visits"
	metricProfileViews  = "profile_views"
)

// firstValues assigns to each target the first scalar value reported under
// its metric name. A target that is already set this pass is left alone, so
// a repeated name never overwrites the first occurrence. Names without a
// target are ignored.
func firstValues(insights []graph.Insight, targets map[string]**int64) {
	for _, in := range insights {
		dst, ok := targets[in.Name]
		if !ok || *dst != nil {
			continue
		}
		if v, ok := in.First(); ok {
			*dst = models.Ptr(v)
		}
	}
}

func postTargets(p *models.Post) map[string]**int64 {
	return map[string]**int64{
		metricReach:       &p.Reach,
		metricImpressions: &p.Impressions,
		metricSaved:       &p.Saves,
	}
}

func storyTargets(s *models.Story) map[string]**int64 {
	return map[string]**int64{
		metricReplies:       &s.Replies,
		metricShares:        &s.Shares,
		metricImpressions:   &s.Impressions,
		metricProfileVisits: &s.ProfileVisits,
	}
}
