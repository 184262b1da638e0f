// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package memstore is an in-process RecordStore backed by maps.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/store"
)

// Store keeps every entity in memory. All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	posts   map[string]*models.Post
	stories map[string]*models.Story
	kpis    map[time.Time]*models.AccountKpi
}

var _ store.RecordStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		posts:   make(map[string]*models.Post),
		stories: make(map[string]*models.Story),
		kpis:    make(map[time.Time]*models.AccountKpi),
	}
}

func clonePost(p *models.Post) *models.Post {
	c := &models.Post{PostID: p.PostID, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	c.Merge(p)
	return c
}

func cloneStory(s *models.Story) *models.Story {
	c := &models.Story{StoryID: s.StoryID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
	c.Merge(s)
	return c
}

func cloneKpi(k *models.AccountKpi) *models.AccountKpi {
	c := &models.AccountKpi{Date: k.Date, CreatedAt: k.CreatedAt, UpdatedAt: k.UpdatedAt}
	c.Merge(k)
	return c
}

// FindPost returns a copy of the post with postID, or nil when absent.
func (s *Store) FindPost(ctx context.Context, postID string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[postID]
	if !ok {
		return nil, nil
	}
	return clonePost(p), nil
}

// UpsertPost merges the non-nil fields of p into the stored post, creating
// it when absent, and returns a copy of the result.
func (s *Store) UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p == nil || p.PostID == "" {
		return nil, store.ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := store.Timestamp()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.posts[p.PostID]
	if !ok {
		cur = &models.Post{PostID: p.PostID, CreatedAt: now}
		s.posts[p.PostID] = cur
	}
	cur.Merge(p)
	cur.UpdatedAt = now
	return clonePost(cur), nil
}

// ListPosts returns copies of every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, clonePost(p))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return store.PostNewer(out[i], out[j]) })
	return out, nil
}

// FindStory returns a copy of the story with storyID, or nil when absent.
func (s *Store) FindStory(ctx context.Context, storyID string) (*models.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[storyID]
	if !ok {
		return nil, nil
	}
	return cloneStory(st), nil
}

// LatestStory returns the most recently posted story, or nil when none is
// stored.
func (s *Store) LatestStory(ctx context.Context) (*models.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Story
	for _, st := range s.stories {
		if latest == nil || store.StoryNewer(st, latest) {
			latest = st
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneStory(latest), nil
}

// UpsertStory merges the non-nil fields of st into the stored story,
// creating it when absent.
func (s *Store) UpsertStory(ctx context.Context, st *models.Story) (*models.Story, error) {
	if st == nil || st.StoryID == "" {
		return nil, store.ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := store.Timestamp()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.stories[st.StoryID]
	if !ok {
		cur = &models.Story{StoryID: st.StoryID, CreatedAt: now}
		s.stories[st.StoryID] = cur
	}
	cur.Merge(st)
	cur.UpdatedAt = now
	return cloneStory(cur), nil
}

// ListStories returns copies of every story, newest first.
func (s *Store) ListStories(ctx context.Context) ([]*models.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*models.Story, 0, len(s.stories))
	for _, st := range s.stories {
		out = append(out, cloneStory(st))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return store.StoryNewer(out[i], out[j]) })
	return out, nil
}

// FindKpiByDate returns the snapshot for the UTC day of date, or nil.
func (s *Store) FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.kpis[store.NormalizeDate(date)]
	if !ok {
		return nil, nil
	}
	return cloneKpi(k), nil
}

// LatestKpi returns the snapshot with the latest date, or nil when empty.
func (s *Store) LatestKpi(ctx context.Context) (*models.AccountKpi, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.AccountKpi
	for _, k := range s.kpis {
		if latest == nil || k.Date.After(latest.Date) {
			latest = k
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneKpi(latest), nil
}

// UpsertKpi merges the non-nil fields of k into the snapshot for its day.
func (s *Store) UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error) {
	if k == nil || k.Date.IsZero() {
		return nil, store.ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	date := store.NormalizeDate(k.Date)
	now := store.Timestamp()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.kpis[date]
	if !ok {
		cur = &models.AccountKpi{Date: date, CreatedAt: now}
		s.kpis[date] = cur
	}
	cur.Merge(k)
	cur.UpdatedAt = now
	return cloneKpi(cur), nil
}

// ListKpis returns every snapshot in ascending date order.
func (s *Store) ListKpis(ctx context.Context) ([]*models.AccountKpi, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*models.AccountKpi, 0, len(s.kpis))
	for _, k := range s.kpis {
		out = append(out, cloneKpi(k))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Close is a no-op; the maps stay readable.
func (s *Store) Close() error {
	return nil
}
