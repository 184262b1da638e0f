// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/models"
)

const mediaWithInsights = `{"data":[
  {"id":"p1","caption":"first","timestamp":"2024-01-01T10:00:00+0000","like_count":10,"comments_count":2,
   "insights":{"data":[
     {"name":"reach","period":"lifetime","values":[{"value":100}]},
     {"name":"impressions","period":"lifetime","values":[{"value":150}]},
     {"name":"saved","period":"lifetime","values":[{"value":7}]},
     {"name":"video_views","period":"lifetime","values":[{"value":999}]}
   ]}},
  {"id":"p2","timestamp":"2024-01-01T12:00:00+0000","like_count":4,
   "insights":{"data":[{"name":"reach","period":"lifetime","values":[{"value":40}]}]}}
]}`

func mediaPath() string {
	return "/" + testAccount + "/media"
}

func TestReconcilePosts_MapsFieldsAndInsights(t *testing.T) {
	h := newHarness(t)
	h.graph.Handle(mediaPath(), mediaWithInsights)

	if err := h.cycle().reconcilePosts(context.Background()); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}

	p1 := mustFindPost(t, h, "p1")
	if p1.Caption == nil || *p1.Caption != "first" {
		t.Errorf("Caption = %v, want first", p1.Caption)
	}
	if p1.PostedAt == nil || !p1.PostedAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PostedAt = %v", p1.PostedAt)
	}
	assertInt(t, "p1.Likes", p1.Likes, 10)
	assertInt(t, "p1.Comments", p1.Comments, 2)
	assertInt(t, "p1.Reach", p1.Reach, 100)
	assertInt(t, "p1.Impressions", p1.Impressions, 150)
	assertInt(t, "p1.Saves", p1.Saves, 7)

	p2 := mustFindPost(t, h, "p2")
	assertInt(t, "p2.Reach", p2.Reach, 40)
	assertNil(t, "p2.Impressions", p2.Impressions)
	assertNil(t, "p2.Comments", p2.Comments)

	// Embedded insights mean no supplementary calls.
	if n := h.graph.Count("/p1/insights") + h.graph.Count("/p2/insights"); n != 0 {
		t.Errorf("made %d supplementary insight calls, want 0", n)
	}

	reqs := h.graph.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	if got := reqs[0].Query.Get("access_token"); got != testToken {
		t.Errorf("access_token = %q, want snapshot token", got)
	}
	if got := reqs[0].Query.Get("limit"); got != "25" {
		t.Errorf("limit = %q, want 25", got)
	}
}

func TestReconcilePosts_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.graph.Handle(mediaPath(), mediaWithInsights)
	ctx := context.Background()

	if err := h.cycle().reconcilePosts(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := h.store.ListPosts(ctx)

	if err := h.cycle().reconcilePosts(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, _ := h.store.ListPosts(ctx)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("post counts = %d, %d, want 2, 2", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.PostID != b.PostID {
			t.Fatalf("order changed: %s vs %s", a.PostID, b.PostID)
		}
		pairs := []struct {
			name string
			x, y *int64
		}{
			{"Likes", a.Likes, b.Likes},
			{"Comments", a.Comments, b.Comments},
			{"Reach", a.Reach, b.Reach},
			{"Impressions", a.Impressions, b.Impressions},
			{"Saves", a.Saves, b.Saves},
		}
		for _, p := range pairs {
			if (p.x == nil) != (p.y == nil) || (p.x != nil && *p.x != *p.y) {
				t.Errorf("%s.%s changed between runs: %v -> %v", a.PostID, p.name, p.x, p.y)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			t.Errorf("%s.CreatedAt changed between runs", a.PostID)
		}
	}
}

func TestReconcilePosts_PartialResponseKeepsStoredFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.store.UpsertPost(ctx, &models.Post{
		PostID:      "p1",
		Caption:     models.Ptr("kept"),
		Comments:    models.Ptr[int64](5),
		Reach:       models.Ptr[int64](100),
		Impressions: models.Ptr[int64](120),
		Saves:       models.Ptr[int64](3),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	h.graph.Handle(mediaPath(), `{"data":[{"id":"p1","like_count":11,
	  "insights":{"data":[{"name":"impressions","values":[{"value":130}]}]}}]}`)

	if err := h.cycle().reconcilePosts(ctx); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}

	p := mustFindPost(t, h, "p1")
	assertInt(t, "Likes", p.Likes, 11)
	assertInt(t, "Impressions", p.Impressions, 130)
	assertInt(t, "Comments", p.Comments, 5)
	assertInt(t, "Reach", p.Reach, 100)
	assertInt(t, "Saves", p.Saves, 3)
	if p.Caption == nil || *p.Caption != "kept" {
		t.Errorf("Caption = %v, want kept", p.Caption)
	}
}

func TestReconcilePosts_SupplementaryInsightFailureIsPerItem(t *testing.T) {
	h := newHarness(t)
	h.graph.Handle(mediaPath(), `{"data":[
	  {"id":"X","like_count":1},
	  {"id":"Y","like_count":2}
	]}`)
	h.graph.Fail("/X/insights", "Unsupported get request")
	h.graph.Handle("/Y/insights", `{"data":[
	  {"name":"reach","values":[{"value":21}]},
	  {"name":"impressions","values":[{"value":22}]},
	  {"name":"saved","values":[{"value":23}]}
	]}`)

	before := testutil.ToFloat64(metrics.CategoryErrors.WithLabelValues(CategoryPosts, errorTypeTransport))

	if err := h.cycle().reconcilePosts(context.Background()); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}

	x := mustFindPost(t, h, "X")
	assertInt(t, "X.Likes", x.Likes, 1)
	assertNil(t, "X.Reach", x.Reach)
	assertNil(t, "X.Impressions", x.Impressions)
	assertNil(t, "X.Saves", x.Saves)

	y := mustFindPost(t, h, "Y")
	assertInt(t, "Y.Reach", y.Reach, 21)
	assertInt(t, "Y.Impressions", y.Impressions, 22)
	assertInt(t, "Y.Saves", y.Saves, 23)

	updates := h.updates(t, CategoryPosts)
	if len(updates) != 1 {
		t.Fatalf("got %d post updates, want 1", len(updates))
	}
	posts, ok := updates[0].Data.([]*models.Post)
	if !ok {
		t.Fatalf("update data type %T, want []*models.Post", updates[0].Data)
	}
	if len(posts) != 2 {
		t.Fatalf("published %d posts, want 2", len(posts))
	}
	assertInt(t, "published Y.Reach", posts[1].Reach, 21)

	after := testutil.ToFloat64(metrics.CategoryErrors.WithLabelValues(CategoryPosts, errorTypeTransport))
	if after-before != 1 {
		t.Errorf("transport errors increased by %v, want 1", after-before)
	}

	if got := h.graph.Requests()[1].Query.Get("metric"); got != "reach,impressions,saved" {
		t.Errorf("supplementary metric = %q", got)
	}
}

// Response with no insights and a failing supplementary call: likes are
// stored, insight fields stay unset and exactly one update carries the post.
func TestReconcilePosts_SinglePostWithoutInsights(t *testing.T) {
	h := newHarness(t)
	h.graph.Handle(mediaPath(), `{"data":[{"id":"p1","timestamp":"2024-01-01T00:00:00+0000","like_count":10}]}`)
	h.graph.Fail("/p1/insights", "insights unavailable")

	if err := h.cycle().reconcilePosts(context.Background()); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}

	p := mustFindPost(t, h, "p1")
	assertInt(t, "Likes", p.Likes, 10)
	assertNil(t, "Reach", p.Reach)
	assertNil(t, "Impressions", p.Impressions)
	assertNil(t, "Saves", p.Saves)
	if p.PostedAt == nil || !p.PostedAt.Equal(day(2024, 1, 1)) {
		t.Errorf("PostedAt = %v, want 2024-01-01T00:00:00Z", p.PostedAt)
	}

	msgs := h.rec.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d publishes, want 1", len(msgs))
	}
	posts := msgs[0].Payload.(models.Update).Data.([]*models.Post)
	if len(posts) != 1 || posts[0].PostID != "p1" {
		t.Fatalf("published %+v, want the single post p1", posts)
	}
	assertInt(t, "published Likes", posts[0].Likes, 10)
}

func TestReconcilePosts_FirstReportedInsightWins(t *testing.T) {
	h := newHarness(t)
	h.graph.Handle(mediaPath(), `{"data":[{"id":"p1","insights":{"data":[
	  {"name":"reach","values":[{"value":10}]},
	  {"name":"reach","values":[{"value":20}]}
	]}}]}`)

	if err := h.cycle().reconcilePosts(context.Background()); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}
	assertInt(t, "Reach", mustFindPost(t, h, "p1").Reach, 10)
}

func TestReconcilePosts_TransportFailureAbortsWithoutPublish(t *testing.T) {
	h := newHarness(t)
	h.graph.Fail(mediaPath(), "Error validating access token")

	err := h.cycle().reconcilePosts(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if n := len(h.rec.Messages()); n != 0 {
		t.Errorf("got %d publishes after transport failure, want 0", n)
	}
}

func TestReconcilePosts_SkipsItemsWithoutID(t *testing.T) {
	h := newHarness(t)
	h.graph.Handle(mediaPath(), `{"data":[{"like_count":3,"insights":{"data":[]}},{"id":"p9","insights":{"data":[]}}]}`)

	if err := h.cycle().reconcilePosts(context.Background()); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}
	posts, _ := h.store.ListPosts(context.Background())
	if len(posts) != 1 || posts[0].PostID != "p9" {
		t.Errorf("stored %d posts, want only p9", len(posts))
	}
}

func TestReconcilePosts_EmptyResponseDoesNotPublish(t *testing.T) {
	h := newHarness(t)
	h.graph.Handle(mediaPath(), `{"data":[]}`)

	if err := h.cycle().reconcilePosts(context.Background()); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}
	if n := len(h.rec.Messages()); n != 0 {
		t.Errorf("got %d publishes, want 0", n)
	}
}

func TestReconcilePosts_ConcurrentWriteIsNotLost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.store.UpsertPost(ctx, &models.Post{PostID: "p1", Likes: models.Ptr[int64](1), Reach: models.Ptr[int64](50)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Another writer updates reach between this cycle's read and its upsert.
	h.engine.store = &interleavingStore{
		Store: h.store,
		post:  &models.Post{PostID: "p1", Reach: models.Ptr[int64](99), Saves: models.Ptr[int64](4)},
	}

	h.graph.Handle(mediaPath(), `{"data":[{"id":"p1","like_count":5}]}`)
	h.graph.Fail("/p1/insights", "Unsupported get request")

	if err := h.cycle().reconcilePosts(ctx); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}

	p := mustFindPost(t, h, "p1")
	assertInt(t, "Likes", p.Likes, 5)
	assertInt(t, "Reach", p.Reach, 99)
	assertInt(t, "Saves", p.Saves, 4)
}

func TestReconcilePosts_StoreFailureIsPerItem(t *testing.T) {
	h := newHarness(t)
	h.engine.store = &failingItemStore{Store: h.store, badPost: "p2"}
	h.graph.Handle(mediaPath(), `{"data":[
	  {"id":"p1","like_count":1,"insights":{"data":[{"name":"reach","values":[{"value":10}]}]}},
	  {"id":"p2","like_count":2,"insights":{"data":[{"name":"reach","values":[{"value":20}]}]}},
	  {"id":"p3","like_count":3,"insights":{"data":[{"name":"reach","values":[{"value":30}]}]}}
	]}`)

	counter := metrics.CategoryErrors.WithLabelValues(CategoryPosts, errorTypePersistence)
	before := testutil.ToFloat64(counter)

	c := h.cycle()
	if err := c.reconcilePosts(context.Background()); err != nil {
		t.Fatalf("reconcilePosts: %v", err)
	}

	assertInt(t, "p1.Likes", mustFindPost(t, h, "p1").Likes, 1)
	assertInt(t, "p3.Likes", mustFindPost(t, h, "p3").Likes, 3)
	if p, _ := h.store.FindPost(context.Background(), "p2"); p != nil {
		t.Error("rejected post was stored")
	}

	updates := h.updates(t, CategoryPosts)
	if len(updates) != 1 {
		t.Fatalf("got %d post updates, want 1", len(updates))
	}
	posts := updates[0].Data.([]*models.Post)
	var ids []string
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p3" {
		t.Errorf("published %v, want [p1 p3]", ids)
	}

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("persistence errors grew by %v, want 1", got)
	}
	if got := c.failures.Load(); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
}
