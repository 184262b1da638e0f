// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package store

import (
	"sort"
	"testing"
	"time"

	"github.com/tomtom215/instakpi/internal/models"
)

func TestNormalizeDate(t *testing.T) {
	in := time.Date(2024, 5, 6, 23, 59, 0, 0, time.FixedZone("x", -3600))
	got := NormalizeDate(in)
	want := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("NormalizeDate(%v) = %v, want %v", in, got, want)
	}
}

func TestStoryNewer(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	stories := []*models.Story{
		{StoryID: "no-date"},
		{StoryID: "old", PostedAt: &t1},
		{StoryID: "new", PostedAt: &t2},
	}
	sort.Slice(stories, func(i, j int) bool { return StoryNewer(stories[i], stories[j]) })

	got := []string{stories[0].StoryID, stories[1].StoryID, stories[2].StoryID}
	want := []string{"new", "old", "no-date"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPostNewer_TieBreaksOnID(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &models.Post{PostID: "b", PostedAt: &ts}
	b := &models.Post{PostID: "a", PostedAt: &ts}
	if !PostNewer(a, b) || PostNewer(b, a) {
		t.Error("equal timestamps should order by PostID descending")
	}
}
