// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"
	"strconv"
	"time"

	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/models"
)

// reconcileAccountKpis runs the three account sub-steps, each isolated, then
// writes today's snapshot once and publishes the full listing.
func (c *cycle) reconcileAccountKpis(ctx context.Context) error {
	today := c.today()

	// 1. Daily reach series over the trailing window.
	if err := c.reconcileReachSeries(ctx, today); err != nil {
		c.fail(ctx, CategoryAccountKpis, err)
	}

	// 2. Current followers and profile views, attached to today.
	observed := &models.AccountKpi{Date: today}
	if n, err := c.fetchFollowers(ctx); err != nil {
		c.fail(ctx, CategoryAccountKpis, err)
	} else if n != nil {
		observed.Followers = n
	}
	if n, err := c.fetchProfileViews(ctx); err != nil {
		c.fail(ctx, CategoryAccountKpis, err)
	} else if n != nil {
		observed.ProfileViews = n
	}

	stored, err := c.store.FindKpiByDate(ctx, today)
	if err != nil {
		return persistenceErr("find kpi "+models.DateKey(today), err)
	}

	// 3. Day-over-day follower delta, from the stored row overlaid with
	// this cycle's observations. Only the observed fields are written.
	merged := &models.AccountKpi{Date: today}
	merged.Merge(stored)
	merged.Merge(observed)

	yesterday, err := c.store.FindKpiByDate(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		// Treated like a missing yesterday: the delta falls back to 0.
		c.fail(ctx, CategoryAccountKpis, persistenceErr("find kpi "+models.DateKey(today.AddDate(0, 0, -1)), err))
		yesterday = nil
	}
	observed.NewFollowers = models.Ptr(DeriveNewFollowers(merged, yesterday))

	saved, err := c.store.UpsertKpi(ctx, observed)
	if err != nil {
		return persistenceErr("upsert kpi "+models.DateKey(today), err)
	}
	metrics.RecordsUpserted.WithLabelValues("account_kpi").Inc()

	listing, err := c.store.ListKpis(ctx)
	if err != nil {
		return persistenceErr("list kpis", err)
	}

	event := logging.Ctx(ctx).Info().
		Str("date", models.DateKey(today)).
		Int64("new_followers", *saved.NewFollowers).
		Int("snapshots", len(listing))
	if saved.Followers != nil {
		event = event.Int64("followers", *saved.Followers)
	}
	event.Msg("Account KPIs reconciled")

	c.publish(ctx, CategoryAccountKpis, listing)
	return nil
}

// reconcileReachSeries upserts reach for every day the insights endpoint
// reports. A store failure skips that day only.
func (c *cycle) reconcileReachSeries(ctx context.Context, today time.Time) error {
	since := today.AddDate(0, 0, -c.reachWindowDays)
	path := "/" + c.snap.AccountID + "/insights"
	resp, err := c.get(ctx, path, c.params(
		"metric", metricReach,
		"period", "day",
		"since", strconv.FormatInt(since.Unix(), 10),
		"until", strconv.FormatInt(c.now().Unix(), 10),
	))
	if err != nil {
		return err
	}

	series := dailyValues(graph.InsightsFromRecords(resp.Data), metricReach, c.loc)
	written := 0
	for _, point := range series {
		row := &models.AccountKpi{Date: point.date, Reach: models.Ptr(point.value)}
		if _, err := c.store.UpsertKpi(ctx, row); err != nil {
			c.fail(ctx, CategoryAccountKpis, persistenceErr("upsert kpi "+models.DateKey(point.date), err))
			continue
		}
		written++
	}

	metrics.RecordsUpserted.WithLabelValues("account_kpi").Add(float64(written))
	logging.Ctx(ctx).Debug().Int("days", len(series)).Int("written", written).Msg("Reach series reconciled")
	return nil
}

func (c *cycle) fetchFollowers(ctx context.Context) (*int64, error) {
	resp, err := c.get(ctx, "/"+c.snap.AccountID, c.params("fields", "followers_count"))
	if err != nil {
		return nil, err
	}
	if n, ok := resp.Record.Int("followers_count"); ok {
		return models.Ptr(n), nil
	}
	return nil, nil
}

// fetchProfileViews returns the most recent daily profile_views value.
func (c *cycle) fetchProfileViews(ctx context.Context) (*int64, error) {
	resp, err := c.get(ctx, "/"+c.snap.AccountID+"/insights", c.params(
		"metric", metricProfileViews,
		"period", "day",
	))
	if err != nil {
		return nil, err
	}
	for _, in := range graph.InsightsFromRecords(resp.Data) {
		if in.Name != metricProfileViews {
			continue
		}
		if n, ok := in.Last(); ok {
			return models.Ptr(n), nil
		}
		return nil, nil
	}
	return nil, nil
}

type datedValue struct {
	date  time.Time
	value int64
}

// dailyValues flattens the first insight named name into (date, value)
// points in response order. Points without a value or end_time are skipped
// and a date repeated later in the series keeps its first value.
func dailyValues(insights []graph.Insight, name string, loc *time.Location) []datedValue {
	for _, in := range insights {
		if in.Name != name {
			continue
		}
		seen := make(map[time.Time]bool, len(in.Values))
		out := make([]datedValue, 0, len(in.Values))
		for _, v := range in.Values {
			if v.Value == nil || v.EndTime == nil {
				continue
			}
			date := models.Day(*v.EndTime, loc)
			if seen[date] {
				continue
			}
			seen[date] = true
			out = append(out, datedValue{date: date, value: *v.Value})
		}
		return out
	}
	return nil
}
