// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/publish"
	"github.com/tomtom215/instakpi/internal/store/memstore"
	"github.com/tomtom215/instakpi/internal/testinfra"
)

const (
	testAccount = "17841400000000001"
	testToken   = "EAAtest"
)

// testNow is noon UTC on 2024-01-02, so "today" is 2024-01-02.
var testNow = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

type harness struct {
	graph  *testinfra.GraphServer
	store  *memstore.Store
	rec    *publish.Recorder
	engine *Engine
}

func newHarness(t *testing.T, mutate ...func(*config.SyncConfig)) *harness {
	t.Helper()

	gs := testinfra.NewGraphServer(t)
	client := graph.NewClient(&config.GraphConfig{
		BaseURL:    gs.URL(),
		APIVersion: testinfra.GraphAPIVersion,
		Timeout:    5 * time.Second,
	})
	return newHarnessWithClient(t, gs, client, mutate...)
}

func newHarnessWithClient(t *testing.T, gs *testinfra.GraphServer, client graph.MetricClient, mutate ...func(*config.SyncConfig)) *harness {
	t.Helper()

	cfg := &config.SyncConfig{
		MediaLimit:      25,
		ReelWindow:      10,
		ReachWindowDays: 30,
		CycleTimeout:    10 * time.Second,
	}
	for _, m := range mutate {
		m(cfg)
	}

	h := &harness{
		graph: gs,
		store: memstore.New(),
		rec:   &publish.Recorder{},
	}
	h.engine = NewEngine(client, h.store, h.rec, cfg, WithClock(func() time.Time { return testNow }))
	return h
}

func (h *harness) cycle() *cycle {
	return &cycle{Engine: h.engine, snap: Snapshot{AccountID: testAccount, AccessToken: testToken}}
}

// updates returns the published updates for category in publish order.
func (h *harness) updates(t *testing.T, category string) []models.Update {
	t.Helper()
	var out []models.Update
	for _, msg := range h.rec.Messages() {
		if msg.Topic != publish.TopicKpiUpdates {
			t.Errorf("published on topic %q, want %q", msg.Topic, publish.TopicKpiUpdates)
			continue
		}
		u, ok := msg.Payload.(models.Update)
		if !ok {
			t.Fatalf("payload type %T, want models.Update", msg.Payload)
		}
		if u.Category == category {
			out = append(out, u)
		}
	}
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustFindPost(t *testing.T, h *harness, id string) *models.Post {
	t.Helper()
	p, err := h.store.FindPost(context.Background(), id)
	if err != nil {
		t.Fatalf("FindPost(%s): %v", id, err)
	}
	if p == nil {
		t.Fatalf("post %s not stored", id)
	}
	return p
}

func mustFindKpi(t *testing.T, h *harness, date time.Time) *models.AccountKpi {
	t.Helper()
	k, err := h.store.FindKpiByDate(context.Background(), date)
	if err != nil {
		t.Fatalf("FindKpiByDate(%s): %v", models.DateKey(date), err)
	}
	if k == nil {
		t.Fatalf("snapshot %s not stored", models.DateKey(date))
	}
	return k
}

func assertInt(t *testing.T, field string, got *int64, want int64) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %d", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %d, want %d", field, *got, want)
	}
}

func assertNil(t *testing.T, field string, got *int64) {
	t.Helper()
	if got != nil {
		t.Errorf("%s = %d, want unset", field, *got)
	}
}

// panicClient panics for one path and delegates everything else.
type panicClient struct {
	next graph.MetricClient
	path string
}

func (p *panicClient) Get(ctx context.Context, path string, params url.Values) (*graph.Response, error) {
	if path == p.path {
		panic("boom")
	}
	return p.next.Get(ctx, path, params)
}

var errRejected = errors.New("write rejected")

// rejectingStore fails UpsertKpi for one date.
type rejectingStore struct {
	*memstore.Store
	badDate time.Time
}

func (s *rejectingStore) UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error) {
	if k.Date.Equal(s.badDate) {
		return nil, errRejected
	}
	return s.Store.UpsertKpi(ctx, k)
}

// interleavingStore lands one extra write right after the engine reads the
// matching key, so the engine's copy is stale by the time it upserts.
type interleavingStore struct {
	*memstore.Store
	post  *models.Post
	story *models.Story
	kpi   *models.AccountKpi
}

func (s *interleavingStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	read, err := s.Store.FindPost(ctx, id)
	if s.post != nil && s.post.PostID == id {
		w := s.post
		s.post = nil
		if _, werr := s.Store.UpsertPost(ctx, w); werr != nil {
			return nil, werr
		}
	}
	return read, err
}

func (s *interleavingStore) FindStory(ctx context.Context, id string) (*models.Story, error) {
	read, err := s.Store.FindStory(ctx, id)
	if s.story != nil && s.story.StoryID == id {
		w := s.story
		s.story = nil
		if _, werr := s.Store.UpsertStory(ctx, w); werr != nil {
			return nil, werr
		}
	}
	return read, err
}

func (s *interleavingStore) FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error) {
	read, err := s.Store.FindKpiByDate(ctx, date)
	if s.kpi != nil && s.kpi.Date.Equal(date) {
		w := s.kpi
		s.kpi = nil
		if _, werr := s.Store.UpsertKpi(ctx, w); werr != nil {
			return nil, werr
		}
	}
	return read, err
}

// failingItemStore rejects upserts of one post or story id.
type failingItemStore struct {
	*memstore.Store
	badPost  string
	badStory string
}

func (s *failingItemStore) UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p.PostID == s.badPost {
		return nil, errRejected
	}
	return s.Store.UpsertPost(ctx, p)
}

func (s *failingItemStore) UpsertStory(ctx context.Context, st *models.Story) (*models.Story, error) {
	if st.StoryID == s.badStory {
		return nil, errRejected
	}
	return s.Store.UpsertStory(ctx, st)
}
