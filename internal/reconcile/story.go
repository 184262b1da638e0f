// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"

	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/models"
)

const storyFields = "id,timestamp,insights.metric(replies,shares,impressions,profile_visits)"

// reconcileLatestStory upserts the most recent story. No stories is not an
// error.
func (c *cycle) reconcileLatestStory(ctx context.Context) error {
	path := "/" + c.snap.AccountID + "/stories"
	resp, err := c.get(ctx, path, c.params(
		"fields", storyFields,
		"limit", "1",
	))
	if err != nil {
		return err
	}
	if len(resp.Data) == 0 {
		logging.Ctx(ctx).Debug().Msg("No story to reconcile")
		return nil
	}

	observed, ok := storyFromRecord(resp.Data[0])
	if !ok {
		return transportErr("GET "+path, errMissingID)
	}
	firstValues(resp.Data[0].Insights(), storyTargets(observed))

	current, err := c.store.FindStory(ctx, observed.StoryID)
	if err != nil {
		return persistenceErr("find story "+observed.StoryID, err)
	}
	if current == nil {
		logging.Ctx(ctx).Debug().Str("story_id", observed.StoryID).Msg("Creating story")
	}

	saved, err := c.store.UpsertStory(ctx, observed)
	if err != nil {
		return persistenceErr("upsert story "+observed.StoryID, err)
	}
	metrics.RecordsUpserted.WithLabelValues("story").Inc()
	logging.Ctx(ctx).Info().Str("story_id", saved.StoryID).Msg("Latest story reconciled")

	c.publish(ctx, CategoryLatestStory, saved)
	return nil
}

func storyFromRecord(rec graph.Record) (*models.Story, bool) {
	id, ok := rec.String("id")
	if !ok || id == "" {
		return nil, false
	}
	s := &models.Story{StoryID: id}
	if t, ok := rec.Time("timestamp"); ok {
		s.PostedAt = models.Ptr(t.UTC())
	}
	return s, true
}
