// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/store"
)

// PostIDPrefix prefixes every seeded post id.
const PostIDPrefix = "TEST_"

var captions = []string{
	"Beautiful sunset at the beach! #nature #sunset",
	"New product launch! Check out our latest collection #fashion #new",
	"Team building day with amazing colleagues! #work #team",
	"Delicious food at the new restaurant downtown #foodie #dinner",
	"Morning workout routine #fitness #health",
}

// metricRange is the [base, base+spread) interval of a random metric.
type metricRange struct {
	base, spread int64
}

// Initial values and per-Grow increments, in Post field order:
// likes, comments, shares, saves, reach, impressions.
var (
	initialRanges = [6]metricRange{{100, 1000}, {10, 100}, {5, 50}, {20, 200}, {1000, 5000}, {2000, 8000}}
	growthRanges  = [6]metricRange{{0, 50}, {0, 10}, {0, 5}, {0, 20}, {0, 200}, {0, 300}}
)

// Seeder writes generated posts into a PostStore.
type Seeder struct {
	posts store.PostStore
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Seeder with a time-seeded random source.
func New(posts store.PostStore) *Seeder {
	seed := uint64(time.Now().UnixNano())
	return NewWithSource(posts, rand.NewPCG(seed, seed>>1), time.Now)
}

// NewWithSource returns a Seeder with a fixed random source and clock.
func NewWithSource(posts store.PostStore, src rand.Source, now func() time.Time) *Seeder {
	return &Seeder{posts: posts, now: now, rng: rand.New(src)}
}

// Posts generates the seed posts without storing them.
func (s *Seeder) Posts() []*models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Second)
	posts := make([]*models.Post, len(captions))
	for i, caption := range captions {
		v := s.draw(initialRanges)
		posts[i] = &models.Post{
			PostID:      fmt.Sprintf("%s%d", PostIDPrefix, i+1),
			Caption:     models.Ptr(caption),
			PostedAt:    models.Ptr(now.AddDate(0, 0, -i)),
			Likes:       &v[0],
			Comments:    &v[1],
			Shares:      &v[2],
			Saves:       &v[3],
			Reach:       &v[4],
			Impressions: &v[5],
		}
	}
	return posts
}

// Seed upserts freshly generated posts and returns the stored versions.
func (s *Seeder) Seed(ctx context.Context) ([]*models.Post, error) {
	generated := s.Posts()
	stored := make([]*models.Post, 0, len(generated))
	for _, p := range generated {
		saved, err := s.posts.UpsertPost(ctx, p)
		if err != nil {
			return stored, fmt.Errorf("seed post %s: %w", p.PostID, err)
		}
		stored = append(stored, saved)
	}
	logging.Info().Int("posts", len(stored)).Msg("Seeded test posts")
	return stored, nil
}

// Grow adds random engagement to every stored seed post. Posts whose metrics
// were never observed start from zero.
func (s *Seeder) Grow(ctx context.Context) ([]*models.Post, error) {
	var grown []*models.Post
	for i := range captions {
		id := fmt.Sprintf("%s%d", PostIDPrefix, i+1)
		existing, err := s.posts.FindPost(ctx, id)
		if err != nil {
			return grown, fmt.Errorf("find post %s: %w", id, err)
		}
		if existing == nil {
			continue
		}

		s.mu.Lock()
		inc := s.draw(growthRanges)
		s.mu.Unlock()

		update := &models.Post{
			PostID:      id,
			Likes:       add(existing.Likes, inc[0]),
			Comments:    add(existing.Comments, inc[1]),
			Shares:      add(existing.Shares, inc[2]),
			Saves:       add(existing.Saves, inc[3]),
			Reach:       add(existing.Reach, inc[4]),
			Impressions: add(existing.Impressions, inc[5]),
		}
		saved, err := s.posts.UpsertPost(ctx, update)
		if err != nil {
			return grown, fmt.Errorf("grow post %s: %w", id, err)
		}
		grown = append(grown, saved)
	}
	return grown, nil
}

// draw must be called with mu held.
func (s *Seeder) draw(ranges [6]metricRange) [6]int64 {
	var out [6]int64
	for i, r := range ranges {
		out[i] = r.base
		if r.spread > 0 {
			out[i] += s.rng.Int64N(r.spread)
		}
	}
	return out
}

func add(p *int64, n int64) *int64 {
	var v int64
	if p != nil {
		v = *p
	}
	v += n
	return &v
}
