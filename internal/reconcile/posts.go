// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"
	"strings"

	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/models"
)

var postInsightMetrics = strings.Join([]string{metricReach, metricImpressions, metricSaved}, ",")

const postFields = "id,caption,timestamp,like_count,comments_count,media_product_type," +
	"insights.metric(reach,impressions,saved)"

// reconcilePosts upserts every recent media item and publishes the upserted
// set once. Per-item insight and store failures are recorded and skipped.
func (c *cycle) reconcilePosts(ctx context.Context) error {
	path := "/" + c.snap.AccountID + "/media"
	resp, err := c.get(ctx, path, c.params(
		"fields", postFields,
		"limit", itoa(c.mediaLimit),
	))
	if err != nil {
		return err
	}

	upserted := make([]*models.Post, 0, len(resp.Data))
	for _, rec := range resp.Data {
		observed, ok := postFromRecord(rec)
		if !ok {
			logging.Ctx(ctx).Warn().Str("category", CategoryPosts).Msg("Skipping media item without id")
			continue
		}

		if rec.HasInsights() {
			firstValues(rec.Insights(), postTargets(observed))
		} else if err := c.fetchPostInsights(ctx, observed); err != nil {
			// Insight fields stay unset; the item is still upserted.
			c.fail(ctx, CategoryPosts, err)
		}

		saved, err := c.upsertPost(ctx, observed)
		if err != nil {
			c.fail(ctx, CategoryPosts, err)
			continue
		}
		upserted = append(upserted, saved)
	}

	metrics.RecordsUpserted.WithLabelValues("post").Add(float64(len(upserted)))
	logging.Ctx(ctx).Info().
		Int("fetched", len(resp.Data)).
		Int("upserted", len(upserted)).
		Msg("Posts reconciled")

	if len(upserted) > 0 {
		c.publish(ctx, CategoryPosts, upserted)
	}
	return nil
}

// fetchPostInsights issues the supplementary per-media insights request.
func (c *cycle) fetchPostInsights(ctx context.Context, p *models.Post) error {
	resp, err := c.get(ctx, "/"+p.PostID+"/insights", c.params("metric", postInsightMetrics))
	if err != nil {
		return err
	}
	firstValues(graph.InsightsFromRecords(resp.Data), postTargets(p))
	return nil
}

// upsertPost writes the observed fields of one post. The store merges them
// into the stored row, so fields this cycle did not see are left alone.
func (c *cycle) upsertPost(ctx context.Context, observed *models.Post) (*models.Post, error) {
	current, err := c.store.FindPost(ctx, observed.PostID)
	if err != nil {
		return nil, persistenceErr("find post "+observed.PostID, err)
	}
	if current == nil {
		logging.Ctx(ctx).Debug().Str("post_id", observed.PostID).Msg("Creating post")
	}

	saved, err := c.store.UpsertPost(ctx, observed)
	if err != nil {
		return nil, persistenceErr("upsert post "+observed.PostID, err)
	}
	return saved, nil
}

// postFromRecord maps the fields present in a media record.
func postFromRecord(rec graph.Record) (*models.Post, bool) {
	id, ok := rec.String("id")
	if !ok || id == "" {
		return nil, false
	}
	p := &models.Post{PostID: id}
	if s, ok := rec.String("caption"); ok {
		p.Caption = models.Ptr(s)
	}
	if t, ok := rec.Time("timestamp"); ok {
		p.PostedAt = models.Ptr(t.UTC())
	}
	if n, ok := rec.Int("like_count"); ok {
		p.Likes = models.Ptr(n)
	}
	if n, ok := rec.Int("comments_count"); ok {
		p.Comments = models.Ptr(n)
	}
	return p, true
}
