// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"

	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
)

const (
	reelFields       = "id,caption,timestamp,like_count,comments_count,media_product_type"
	mediaProductReel = "REELS"
)

// reconcilePinnedReel finds the first reel in the recent media window and
// logs it. Reels have no store collection, so nothing is written or
// published.
func (c *cycle) reconcilePinnedReel(ctx context.Context) error {
	_, err := c.findPinnedReel(ctx)
	return err
}

func (c *cycle) findPinnedReel(ctx context.Context) (*models.PinnedReel, error) {
	path := "/" + c.snap.AccountID + "/media"
	resp, err := c.get(ctx, path, c.params(
		"fields", reelFields,
		"limit", itoa(c.reelWindow),
	))
	if err != nil {
		return nil, err
	}

	for _, rec := range resp.Data {
		if kind, _ := rec.String("media_product_type"); kind != mediaProductReel {
			continue
		}
		reel, ok := reelFromRecord(rec)
		if !ok {
			continue
		}
		event := logging.Ctx(ctx).Info().Str("reel_id", reel.ReelID)
		if reel.Likes != nil {
			event = event.Int64("likes", *reel.Likes)
		}
		if reel.Comments != nil {
			event = event.Int64("comments", *reel.Comments)
		}
		event.Msg("Pinned reel found")
		return reel, nil
	}

	logging.Ctx(ctx).Debug().Int("window", c.reelWindow).Msg("No reel in recent media window")
	return nil, nil
}

func reelFromRecord(rec graph.Record) (*models.PinnedReel, bool) {
	id, ok := rec.String("id")
	if !ok || id == "" {
		return nil, false
	}
	r := &models.PinnedReel{ReelID: id}
	if s, ok := rec.String("caption"); ok {
		r.Caption = models.Ptr(s)
	}
	if t, ok := rec.Time("timestamp"); ok {
		r.PostedAt = models.Ptr(t.UTC())
	}
	if n, ok := rec.Int("like_count"); ok {
		r.Likes = models.Ptr(n)
	}
	if n, ok := rec.Int("comments_count"); ok {
		r.Comments = models.Ptr(n)
	}
	return r, true
}
