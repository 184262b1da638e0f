// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package storetest is the behavioural contract every store.RecordStore
// backend must satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/store"
)

// Factory returns a fresh, empty store. Run closes it when the subtest ends.
type Factory func(t *testing.T) store.RecordStore

// Run executes the contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s store.RecordStore)
	}{
		{"MissingIsNil", testMissingIsNil},
		{"InvalidKey", testInvalidKey},
		{"PostUpsertMerges", testPostUpsertMerges},
		{"PostUpsertIdempotent", testPostUpsertIdempotent},
		{"ZeroIsStored", testZeroIsStored},
		{"ListPostsOrder", testListPostsOrder},
		{"StoryUpsertAndLatest", testStoryUpsertAndLatest},
		{"KpiByDate", testKpiByDate},
		{"KpiNegativeNewFollowers", testKpiNegativeNewFollowers},
		{"ConcurrentDisjointUpserts", testConcurrentDisjointUpserts},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func i64(v int64) *int64 { return &v }

func eq(t *testing.T, field string, got *int64, want int64) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %d", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %d, want %d", field, *got, want)
	}
}

func testMissingIsNil(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	p, err := s.FindPost(ctx, "nope")
	if err != nil || p != nil {
		t.Errorf("FindPost = (%v, %v), want (nil, nil)", p, err)
	}
	st, err := s.FindStory(ctx, "nope")
	if err != nil || st != nil {
		t.Errorf("FindStory = (%v, %v), want (nil, nil)", st, err)
	}
	st, err = s.LatestStory(ctx)
	if err != nil || st != nil {
		t.Errorf("LatestStory = (%v, %v), want (nil, nil)", st, err)
	}
	k, err := s.FindKpiByDate(ctx, day(2024, 1, 1))
	if err != nil || k != nil {
		t.Errorf("FindKpiByDate = (%v, %v), want (nil, nil)", k, err)
	}
	k, err = s.LatestKpi(ctx)
	if err != nil || k != nil {
		t.Errorf("LatestKpi = (%v, %v), want (nil, nil)", k, err)
	}

	posts, err := s.ListPosts(ctx)
	if err != nil || len(posts) != 0 {
		t.Errorf("ListPosts = (%d items, %v), want empty", len(posts), err)
	}
}

func testInvalidKey(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	if _, err := s.UpsertPost(ctx, &models.Post{Likes: i64(1)}); !errors.Is(err, store.ErrInvalidKey) {
		t.Errorf("UpsertPost without id: err = %v", err)
	}
	if _, err := s.UpsertStory(ctx, &models.Story{}); !errors.Is(err, store.ErrInvalidKey) {
		t.Errorf("UpsertStory without id: err = %v", err)
	}
	if _, err := s.UpsertKpi(ctx, &models.AccountKpi{Reach: i64(1)}); !errors.Is(err, store.ErrInvalidKey) {
		t.Errorf("UpsertKpi without date: err = %v", err)
	}
}

func testPostUpsertMerges(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	posted := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := s.UpsertPost(ctx, &models.Post{
		PostID:   "p1",
		Caption:  models.Ptr("launch"),
		PostedAt: &posted,
		Likes:    i64(10),
		Reach:    i64(400),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", first)
	}

	second, err := s.UpsertPost(ctx, &models.Post{PostID: "p1", Likes: i64(15), Saves: i64(3)})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	eq(t, "Likes", second.Likes, 15)
	eq(t, "Saves", second.Saves, 3)
	eq(t, "Reach", second.Reach, 400)
	if second.Caption == nil || *second.Caption != "launch" {
		t.Errorf("Caption = %v, want launch", second.Caption)
	}
	if second.PostedAt == nil || !second.PostedAt.Equal(posted) {
		t.Errorf("PostedAt = %v, want %v", second.PostedAt, posted)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}

	found, err := s.FindPost(ctx, "p1")
	if err != nil || found == nil {
		t.Fatalf("FindPost = (%v, %v)", found, err)
	}
	eq(t, "stored Likes", found.Likes, 15)
	eq(t, "stored Reach", found.Reach, 400)
	if found.Comments != nil {
		t.Errorf("Comments = %d, want unobserved", *found.Comments)
	}
}

func testPostUpsertIdempotent(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	in := &models.Post{PostID: "p1", Likes: i64(7), Comments: i64(2)}

	for i := 0; i < 3; i++ {
		if _, err := s.UpsertPost(ctx, in); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("len(posts) = %d, want 1", len(posts))
	}
	eq(t, "Likes", posts[0].Likes, 7)
	eq(t, "Comments", posts[0].Comments, 2)
}

func testZeroIsStored(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	if _, err := s.UpsertPost(ctx, &models.Post{PostID: "p1", Shares: i64(4)}); err != nil {
		t.Fatal(err)
	}
	got, err := s.UpsertPost(ctx, &models.Post{PostID: "p1", Shares: i64(0)})
	if err != nil {
		t.Fatal(err)
	}
	eq(t, "Shares", got.Shares, 0)
}

func testListPostsOrder(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	for _, p := range []*models.Post{
		{PostID: "old", PostedAt: &older},
		{PostID: "undated", Likes: i64(1)},
		{PostID: "new", PostedAt: &newer},
	} {
		if _, err := s.UpsertPost(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"new", "old", "undated"}
	if len(posts) != len(want) {
		t.Fatalf("len(posts) = %d, want %d", len(posts), len(want))
	}
	for i, id := range want {
		if posts[i].PostID != id {
			t.Errorf("posts[%d] = %s, want %s", i, posts[i].PostID, id)
		}
	}
}

func testStoryUpsertAndLatest(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	t1 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(6 * time.Hour)

	if _, err := s.UpsertStory(ctx, &models.Story{StoryID: "s-new", PostedAt: &t2, Replies: i64(4)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertStory(ctx, &models.Story{StoryID: "s-old", PostedAt: &t1, Replies: i64(9)}); err != nil {
		t.Fatal(err)
	}

	latest, err := s.LatestStory(ctx)
	if err != nil || latest == nil {
		t.Fatalf("LatestStory = (%v, %v)", latest, err)
	}
	if latest.StoryID != "s-new" {
		t.Errorf("LatestStory = %s, want s-new", latest.StoryID)
	}

	merged, err := s.UpsertStory(ctx, &models.Story{StoryID: "s-new", Impressions: i64(120), ProfileVisits: i64(0)})
	if err != nil {
		t.Fatal(err)
	}
	eq(t, "Replies", merged.Replies, 4)
	eq(t, "Impressions", merged.Impressions, 120)
	eq(t, "ProfileVisits", merged.ProfileVisits, 0)
	if merged.PostedAt == nil || !merged.PostedAt.Equal(t2) {
		t.Errorf("PostedAt = %v, want %v", merged.PostedAt, t2)
	}

	stories, err := s.ListStories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 2 || stories[0].StoryID != "s-new" {
		t.Errorf("ListStories order wrong: %d items", len(stories))
	}
}

func testKpiByDate(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	d1, d2, d3 := day(2024, 2, 1), day(2024, 2, 2), day(2024, 2, 3)

	for _, k := range []*models.AccountKpi{
		{Date: d2, Reach: i64(200)},
		{Date: d1, Reach: i64(100)},
		{Date: d3, Reach: i64(300)},
	} {
		if _, err := s.UpsertKpi(ctx, k); err != nil {
			t.Fatal(err)
		}
	}

	merged, err := s.UpsertKpi(ctx, &models.AccountKpi{Date: d3, Followers: i64(1000), ProfileViews: i64(12)})
	if err != nil {
		t.Fatal(err)
	}
	eq(t, "Reach", merged.Reach, 300)
	eq(t, "Followers", merged.Followers, 1000)
	if !merged.Date.Equal(d3) {
		t.Errorf("Date = %v, want %v", merged.Date, d3)
	}

	got, err := s.FindKpiByDate(ctx, d1)
	if err != nil || got == nil {
		t.Fatalf("FindKpiByDate = (%v, %v)", got, err)
	}
	eq(t, "d1 Reach", got.Reach, 100)
	if got.Followers != nil {
		t.Errorf("d1 Followers = %d, want unobserved", *got.Followers)
	}

	latest, err := s.LatestKpi(ctx)
	if err != nil || latest == nil {
		t.Fatalf("LatestKpi = (%v, %v)", latest, err)
	}
	if !latest.Date.Equal(d3) {
		t.Errorf("LatestKpi date = %v, want %v", latest.Date, d3)
	}

	all, err := s.ListKpis(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len(ListKpis) = %d, want 3", len(all))
	}
	for i, want := range []time.Time{d1, d2, d3} {
		if !all[i].Date.Equal(want) {
			t.Errorf("ListKpis[%d].Date = %v, want %v", i, all[i].Date, want)
		}
	}
}

func testKpiNegativeNewFollowers(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	d := day(2024, 4, 10)

	if _, err := s.UpsertKpi(ctx, &models.AccountKpi{Date: d, Followers: i64(990), NewFollowers: i64(-10)}); err != nil {
		t.Fatal(err)
	}
	got, err := s.FindKpiByDate(ctx, d)
	if err != nil || got == nil {
		t.Fatalf("FindKpiByDate = (%v, %v)", got, err)
	}
	eq(t, "NewFollowers", got.NewFollowers, -10)
}

func testConcurrentDisjointUpserts(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	d := day(2024, 5, 5)

	writes := []*models.AccountKpi{
		{Date: d, Followers: i64(1)},
		{Date: d, Reach: i64(2)},
		{Date: d, ProfileViews: i64(3)},
		{Date: d, PinnedReelLikes: i64(4)},
		{Date: d, PinnedReelSaves: i64(5)},
		{Date: d, PinnedReelWatchTime: i64(6)},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(writes))
	for _, w := range writes {
		wg.Add(1)
		go func(k *models.AccountKpi) {
			defer wg.Done()
			if _, err := s.UpsertKpi(ctx, k); err != nil {
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent upsert: %v", err)
	}

	got, err := s.FindKpiByDate(ctx, d)
	if err != nil || got == nil {
		t.Fatalf("FindKpiByDate = (%v, %v)", got, err)
	}
	eq(t, "Followers", got.Followers, 1)
	eq(t, "Reach", got.Reach, 2)
	eq(t, "ProfileViews", got.ProfileViews, 3)
	eq(t, "PinnedReelLikes", got.PinnedReelLikes, 4)
	eq(t, "PinnedReelSaves", got.PinnedReelSaves, 5)
	eq(t, "PinnedReelWatchTime", got.PinnedReelWatchTime, 6)
}
