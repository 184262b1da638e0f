// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/testinfra"
)

const graphFailure = `{"error":{"message":"unavailable","type":"OAuthException","code":2}}`

// handleAccount registers the account node and insights routes. An empty
// body makes that call fail.
func handleAccount(h *harness, followers, reach, profileViews string) {
	if followers == "" {
		h.graph.Fail("/"+testAccount, "unavailable")
	} else {
		h.graph.Handle("/"+testAccount, followers)
	}
	h.graph.HandleFunc("/"+testAccount+"/insights", func(r testinfra.GraphRequest) (int, string) {
		body := profileViews
		if r.Query.Get("metric") == metricReach {
			body = reach
		}
		if body == "" {
			return http.StatusBadRequest, graphFailure
		}
		return http.StatusOK, body
	})
}

func followersBody(n int) string {
	return `{"followers_count":` + strconv.Itoa(n) + `,"id":"` + testAccount + `"}`
}

const emptyInsights = `{"data":[]}`

func TestReconcileAccountKpis_NewFollowersFromYesterday(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.store.UpsertKpi(ctx, &models.AccountKpi{Date: day(2024, 1, 1), Followers: models.Ptr[int64](950)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	handleAccount(h, followersBody(1000), emptyInsights, emptyInsights)

	if err := h.cycle().reconcileAccountKpis(ctx); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	today := mustFindKpi(t, h, day(2024, 1, 2))
	assertInt(t, "Followers", today.Followers, 1000)
	assertInt(t, "NewFollowers", today.NewFollowers, 50)
}

func TestReconcileAccountKpis_NoYesterdayGivesExplicitZero(t *testing.T) {
	h := newHarness(t)
	handleAccount(h, followersBody(1000), emptyInsights, emptyInsights)

	if err := h.cycle().reconcileAccountKpis(context.Background()); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	assertInt(t, "NewFollowers", mustFindKpi(t, h, day(2024, 1, 2)).NewFollowers, 0)
}

func TestReconcileAccountKpis_NegativeDeltaIsKept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.store.UpsertKpi(ctx, &models.AccountKpi{Date: day(2024, 1, 1), Followers: models.Ptr[int64](1000)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	handleAccount(h, followersBody(990), emptyInsights, emptyInsights)

	if err := h.cycle().reconcileAccountKpis(ctx); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}
	assertInt(t, "NewFollowers", mustFindKpi(t, h, day(2024, 1, 2)).NewFollowers, -10)
}

func TestReconcileAccountKpis_DailyReachPreservesOtherFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeds := []*models.AccountKpi{
		{Date: day(2024, 1, 1), Followers: models.Ptr[int64](900), ProfileViews: models.Ptr[int64](12)},
		{Date: day(2024, 1, 2), ProfileViews: models.Ptr[int64](15)},
	}
	for _, k := range seeds {
		if _, err := h.store.UpsertKpi(ctx, k); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// Follower and profile view calls fail so only the reach series writes.
	handleAccount(h, "", `{"data":[{"name":"reach","period":"day","values":[
	  {"value":500,"end_time":"2024-01-01T08:00:00+0000"},
	  {"value":600,"end_time":"2024-01-02T08:00:00+0000"}
	]}]}`, "")

	if err := h.cycle().reconcileAccountKpis(ctx); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	first := mustFindKpi(t, h, day(2024, 1, 1))
	assertInt(t, "2024-01-01 Reach", first.Reach, 500)
	assertInt(t, "2024-01-01 Followers", first.Followers, 900)
	assertInt(t, "2024-01-01 ProfileViews", first.ProfileViews, 12)

	second := mustFindKpi(t, h, day(2024, 1, 2))
	assertInt(t, "2024-01-02 Reach", second.Reach, 600)
	assertInt(t, "2024-01-02 ProfileViews", second.ProfileViews, 15)
	assertNil(t, "2024-01-02 Followers", second.Followers)
	// Today's followers are unknown, so the delta defaults to 0.
	assertInt(t, "2024-01-02 NewFollowers", second.NewFollowers, 0)

	listing, _ := h.store.ListKpis(ctx)
	if len(listing) != 2 {
		t.Errorf("got %d snapshots, want 2", len(listing))
	}
}

func TestReconcileAccountKpis_ReachWindowParameters(t *testing.T) {
	h := newHarness(t)
	handleAccount(h, followersBody(1), emptyInsights, emptyInsights)

	if err := h.cycle().reconcileAccountKpis(context.Background()); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	var found bool
	for _, r := range h.graph.Requests() {
		if r.Query.Get("metric") != metricReach {
			continue
		}
		found = true
		wantSince := strconv.FormatInt(day(2023, 12, 3).Unix(), 10)
		if got := r.Query.Get("since"); got != wantSince {
			t.Errorf("since = %s, want %s (30 days before today)", got, wantSince)
		}
		if got := r.Query.Get("until"); got != strconv.FormatInt(testNow.Unix(), 10) {
			t.Errorf("until = %s, want now", got)
		}
		if got := r.Query.Get("period"); got != "day" {
			t.Errorf("period = %s, want day", got)
		}
	}
	if !found {
		t.Fatal("no reach series request made")
	}
}

func TestReconcileAccountKpis_SubStepsAreIsolated(t *testing.T) {
	h := newHarness(t)
	// Reach and followers fail, profile views still lands on today.
	handleAccount(h, "", "", `{"data":[{"name":"profile_views","period":"day","values":[
	  {"value":7,"end_time":"2024-01-01T08:00:00+0000"},
	  {"value":8,"end_time":"2024-01-02T08:00:00+0000"}
	]}]}`)

	if err := h.cycle().reconcileAccountKpis(context.Background()); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	today := mustFindKpi(t, h, day(2024, 1, 2))
	assertInt(t, "ProfileViews", today.ProfileViews, 8)
	assertInt(t, "NewFollowers", today.NewFollowers, 0)
	assertNil(t, "Followers", today.Followers)

	updates := h.updates(t, CategoryAccountKpis)
	if len(updates) != 1 {
		t.Fatalf("got %d KPI updates, want 1", len(updates))
	}
	listing, ok := updates[0].Data.([]*models.AccountKpi)
	if !ok || len(listing) != 1 {
		t.Fatalf("published %#v, want a one-snapshot listing", updates[0].Data)
	}
}

func TestReconcileAccountKpis_PublishesFullListingOnce(t *testing.T) {
	h := newHarness(t)
	handleAccount(h, followersBody(10), `{"data":[{"name":"reach","values":[
	  {"value":1,"end_time":"2023-12-30T08:00:00+0000"},
	  {"value":2,"end_time":"2023-12-31T08:00:00+0000"},
	  {"value":3,"end_time":"2024-01-01T08:00:00+0000"}
	]}]}`, emptyInsights)

	if err := h.cycle().reconcileAccountKpis(context.Background()); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	msgs := h.rec.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d publishes, want 1", len(msgs))
	}
	listing := msgs[0].Payload.(models.Update).Data.([]*models.AccountKpi)
	if len(listing) != 4 {
		t.Fatalf("listing has %d snapshots, want 4", len(listing))
	}
	for i := 1; i < len(listing); i++ {
		if !listing[i-1].Date.Before(listing[i].Date) {
			t.Errorf("listing not ascending at %d", i)
		}
	}
}

func TestReconcileReachSeries_StoreFailureSkipsOneDay(t *testing.T) {
	h := newHarness(t)
	st := &rejectingStore{Store: h.store, badDate: day(2023, 12, 31)}
	h.engine.store = st
	handleAccount(h, followersBody(10), `{"data":[{"name":"reach","values":[
	  {"value":1,"end_time":"2023-12-30T08:00:00+0000"},
	  {"value":2,"end_time":"2023-12-31T08:00:00+0000"},
	  {"value":3,"end_time":"2024-01-01T08:00:00+0000"}
	]}]}`, emptyInsights)

	c := h.cycle()
	if err := c.reconcileAccountKpis(context.Background()); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	assertInt(t, "2023-12-30 Reach", mustFindKpi(t, h, day(2023, 12, 30)).Reach, 1)
	assertInt(t, "2024-01-01 Reach", mustFindKpi(t, h, day(2024, 1, 1)).Reach, 3)
	if k, _ := h.store.FindKpiByDate(context.Background(), day(2023, 12, 31)); k != nil {
		t.Error("rejected day was stored")
	}
	if got := c.failures.Load(); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
}

func TestReconcileAccountKpis_TodayUpsertFailureIsPersistenceError(t *testing.T) {
	h := newHarness(t)
	h.engine.store = &rejectingStore{Store: h.store, badDate: day(2024, 1, 2)}
	handleAccount(h, followersBody(10), emptyInsights, emptyInsights)

	err := h.cycle().reconcileAccountKpis(context.Background())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if n := len(h.rec.Messages()); n != 0 {
		t.Errorf("got %d publishes, want 0", n)
	}
}

func TestReconcileAccountKpis_ConcurrentWriteIsNotLost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeds := []*models.AccountKpi{
		{Date: day(2024, 1, 1), Followers: models.Ptr[int64](990)},
		{Date: day(2024, 1, 2), ProfileViews: models.Ptr[int64](20)},
	}
	for _, k := range seeds {
		if _, err := h.store.UpsertKpi(ctx, k); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	// Profile views are written elsewhere between this cycle's read of
	// today's row and its upsert. The profile views call fails here.
	h.engine.store = &interleavingStore{
		Store: h.store,
		kpi:   &models.AccountKpi{Date: day(2024, 1, 2), ProfileViews: models.Ptr[int64](33)},
	}
	handleAccount(h, followersBody(1000), emptyInsights, "")

	if err := h.cycle().reconcileAccountKpis(ctx); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	today := mustFindKpi(t, h, day(2024, 1, 2))
	assertInt(t, "Followers", today.Followers, 1000)
	assertInt(t, "NewFollowers", today.NewFollowers, 10)
	assertInt(t, "ProfileViews", today.ProfileViews, 33)
}

func TestReconcileAccountKpis_StoredFollowersFeedTheDelta(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeds := []*models.AccountKpi{
		{Date: day(2024, 1, 1), Followers: models.Ptr[int64](900)},
		{Date: day(2024, 1, 2), Followers: models.Ptr[int64](940)},
	}
	for _, k := range seeds {
		if _, err := h.store.UpsertKpi(ctx, k); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	// Followers call fails, so today's stored count is the latest known.
	handleAccount(h, "", emptyInsights, emptyInsights)

	if err := h.cycle().reconcileAccountKpis(ctx); err != nil {
		t.Fatalf("reconcileAccountKpis: %v", err)
	}

	today := mustFindKpi(t, h, day(2024, 1, 2))
	assertInt(t, "Followers", today.Followers, 940)
	assertInt(t, "NewFollowers", today.NewFollowers, 40)
}
