// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package store

import (
	"context"
	"time"

	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/models"
)

// Instrumented wraps a RecordStore with Prometheus timing and error counters
// labelled by backend name.
type Instrumented struct {
	next    RecordStore
	backend string
}

// NewInstrumented wraps next.
func NewInstrumented(backend string, next RecordStore) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

// Backend returns the backend label.
func (s *Instrumented) Backend() string {
	return s.backend
}

func observe[T any](s *Instrumented, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.RecordStoreOperation(s.backend, op, time.Since(start), err)
	return v, err
}

func (s *Instrumented) FindPost(ctx context.Context, postID string) (*models.Post, error) {
	return observe(s, "find_post", func() (*models.Post, error) { return s.next.FindPost(ctx, postID) })
}

func (s *Instrumented) UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error) {
	return observe(s, "upsert_post", func() (*models.Post, error) { return s.next.UpsertPost(ctx, p) })
}

func (s *Instrumented) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return observe(s, "list_posts", func() ([]*models.Post, error) { return s.next.ListPosts(ctx) })
}

func (s *Instrumented) FindStory(ctx context.Context, storyID string) (*models.Story, error) {
	return observe(s, "find_story", func() (*models.Story, error) { return s.next.FindStory(ctx, storyID) })
}

func (s *Instrumented) LatestStory(ctx context.Context) (*models.Story, error) {
	return observe(s, "latest_story", func() (*models.Story, error) { return s.next.LatestStory(ctx) })
}

func (s *Instrumented) UpsertStory(ctx context.Context, st *models.Story) (*models.Story, error) {
	return observe(s, "upsert_story", func() (*models.Story, error) { return s.next.UpsertStory(ctx, st) })
}

func (s *Instrumented) ListStories(ctx context.Context) ([]*models.Story, error) {
	return observe(s, "list_stories", func() ([]*models.Story, error) { return s.next.ListStories(ctx) })
}

func (s *Instrumented) FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error) {
	return observe(s, "find_kpi", func() (*models.AccountKpi, error) { return s.next.FindKpiByDate(ctx, date) })
}

func (s *Instrumented) LatestKpi(ctx context.Context) (*models.AccountKpi, error) {
	return observe(s, "latest_kpi", func() (*models.AccountKpi, error) { return s.next.LatestKpi(ctx) })
}

func (s *Instrumented) UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error) {
	return observe(s, "upsert_kpi", func() (*models.AccountKpi, error) { return s.next.UpsertKpi(ctx, k) })
}

func (s *Instrumented) ListKpis(ctx context.Context) ([]*models.AccountKpi, error) {
	return observe(s, "list_kpis", func() ([]*models.AccountKpi, error) { return s.next.ListKpis(ctx) })
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}

// Ping forwards to the wrapped backend when it can be probed.
func (s *Instrumented) Ping(ctx context.Context) error {
	return Ping(ctx, s.next)
}
