// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/instakpi/internal/models"
)

// ErrInvalidKey is returned when an entity is upserted without its natural key.
var ErrInvalidKey = errors.New("store: empty natural key")

// PostStore persists feed posts keyed by PostID.
type PostStore interface {
	// FindPost returns (nil, nil) when no post has the id.
	FindPost(ctx context.Context, postID string) (*models.Post, error)
	// UpsertPost merges p into the stored post and returns the result.
	UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error)
	// ListPosts returns all posts, newest PostedAt first.
	ListPosts(ctx context.Context) ([]*models.Post, error)
}

// StoryStore persists stories keyed by StoryID.
type StoryStore interface {
	FindStory(ctx context.Context, storyID string) (*models.Story, error)
	// LatestStory returns the story with the greatest PostedAt, or (nil, nil).
	LatestStory(ctx context.Context) (*models.Story, error)
	UpsertStory(ctx context.Context, s *models.Story) (*models.Story, error)
	ListStories(ctx context.Context) ([]*models.Story, error)
}

// KpiStore persists daily account snapshots keyed by calendar date.
type KpiStore interface {
	FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error)
	// LatestKpi returns the snapshot with the greatest date, or (nil, nil).
	LatestKpi(ctx context.Context) (*models.AccountKpi, error)
	UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error)
	// ListKpis returns all snapshots in ascending date order.
	ListKpis(ctx context.Context) ([]*models.AccountKpi, error)
}

// RecordStore is the persistence surface of the reconcile engine.
//
// Every Upsert is atomic per natural key: it reads the stored entity, applies
// the observed (non-nil) fields of the argument with Merge, sets UpdatedAt
// (and CreatedAt on first insert) and writes the result back, so concurrent
// upserts of the same key never lose each other's fields.
type RecordStore interface {
	PostStore
	StoryStore
	KpiStore
	Close() error
}

// Pinger is implemented by backends with a remote connection to probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping probes s when it implements Pinger. Embedded backends report healthy.
func Ping(ctx context.Context, s RecordStore) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Timestamp is the clock used for CreatedAt/UpdatedAt. It is truncated to
// milliseconds so every backend round-trips it exactly.
func Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NormalizeDate reduces a snapshot date to midnight UTC of its UTC calendar day.
func NormalizeDate(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StoryNewer reports whether a sorts before b in "most recent first" order:
// PostedAt descending with unknown PostedAt last, then UpdatedAt descending,
// then StoryID descending.
func StoryNewer(a, b *models.Story) bool {
	switch {
	case a.PostedAt != nil && b.PostedAt == nil:
		return true
	case a.PostedAt == nil && b.PostedAt != nil:
		return false
	case a.PostedAt != nil && !a.PostedAt.Equal(*b.PostedAt):
		return a.PostedAt.After(*b.PostedAt)
	case !a.UpdatedAt.Equal(b.UpdatedAt):
		return a.UpdatedAt.After(b.UpdatedAt)
	default:
		return a.StoryID > b.StoryID
	}
}

// PostNewer orders posts like StoryNewer.
func PostNewer(a, b *models.Post) bool {
	switch {
	case a.PostedAt != nil && b.PostedAt == nil:
		return true
	case a.PostedAt == nil && b.PostedAt != nil:
		return false
	case a.PostedAt != nil && !a.PostedAt.Equal(*b.PostedAt):
		return a.PostedAt.After(*b.PostedAt)
	default:
		return a.PostID > b.PostID
	}
}
