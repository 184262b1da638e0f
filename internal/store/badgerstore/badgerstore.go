// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package badgerstore implements store.RecordStore on BadgerDB.
//
// Entities are stored as JSON under prefixed keys:
//
//	post:<post id>
//	story:<story id>
//	kpi:<YYYY-MM-DD>
//
// Date keys sort lexicographically in calendar order, so the latest snapshot
// is the last key under the kpi: prefix.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/store"
)

// Key prefixes for BadgerDB storage
const (
	postKeyPrefix  = "post:"
	storyKeyPrefix = "story:"
	kpiKeyPrefix   = "kpi:"
)

// maxConflictRetries bounds optimistic transaction retries on badger.ErrConflict.
const maxConflictRetries = 5

// Store is a BadgerDB-backed RecordStore.
type Store struct {
	db   *badger.DB
	owns bool
}

var _ store.RecordStore = (*Store)(nil)

// OpenDB opens (or creates) the Badger directory described by cfg.
func OpenDB(cfg *config.BadgerConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("BadgerDB opened")
	return db, nil
}

// Open opens the Badger directory and returns a Store that closes it on Close.
func Open(cfg *config.BadgerConfig) (*Store, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, owns: true}, nil
}

// New wraps an already open database. Close leaves db open.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.owns {
		return nil
	}
	return s.db.Close()
}

func getJSON(txn *badger.Txn, key string, v interface{}) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// update runs fn in a read-write transaction, retrying on optimistic conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		backoff := time.Millisecond * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}

// scanPrefix calls fn with the value of every key under prefix, in key order
// (or reverse key order).
func (s *Store) scanPrefix(prefix string, reverse bool, limit int, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefix)
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(prefix)
		if reverse {
			seek = append([]byte(prefix), 0xFF)
		}

		n := 0
		for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
			n++
			if limit > 0 && n >= limit {
				break
			}
		}
		return nil
	})
}

func (s *Store) FindPost(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, postKeyPrefix+postID, &p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p == nil || p.PostID == "" {
		return nil, store.ErrInvalidKey
	}
	var out models.Post
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := postKeyPrefix + p.PostID
		now := store.Timestamp()
		cur := models.Post{}
		found, err := getJSON(txn, key, &cur)
		if err != nil {
			return err
		}
		if !found {
			cur = models.Post{PostID: p.PostID, CreatedAt: now}
		}
		cur.Merge(p)
		cur.UpdatedAt = now
		out = cur
		return setJSON(txn, key, &cur)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert post: %w", err)
	}
	return &out, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts := make([]*models.Post, 0)
	err := s.scanPrefix(postKeyPrefix, false, 0, func(val []byte) error {
		var p models.Post
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		posts = append(posts, &p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	sort.Slice(posts, func(i, j int) bool { return store.PostNewer(posts[i], posts[j]) })
	return posts, nil
}

func (s *Store) FindStory(ctx context.Context, storyID string) (*models.Story, error) {
	var st models.Story
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, storyKeyPrefix+storyID, &st)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &st, nil
}

// LatestStory scans every story; story counts are small (one per day at most
// is typical) so no secondary index is kept.
func (s *Store) LatestStory(ctx context.Context) (*models.Story, error) {
	stories, err := s.ListStories(ctx)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, nil
	}
	return stories[0], nil
}

func (s *Store) UpsertStory(ctx context.Context, st *models.Story) (*models.Story, error) {
	if st == nil || st.StoryID == "" {
		return nil, store.ErrInvalidKey
	}
	var out models.Story
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := storyKeyPrefix + st.StoryID
		now := store.Timestamp()
		cur := models.Story{}
		found, err := getJSON(txn, key, &cur)
		if err != nil {
			return err
		}
		if !found {
			cur = models.Story{StoryID: st.StoryID, CreatedAt: now}
		}
		cur.Merge(st)
		cur.UpdatedAt = now
		out = cur
		return setJSON(txn, key, &cur)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert story: %w", err)
	}
	return &out, nil
}

func (s *Store) ListStories(ctx context.Context) ([]*models.Story, error) {
	stories := make([]*models.Story, 0)
	err := s.scanPrefix(storyKeyPrefix, false, 0, func(val []byte) error {
		var st models.Story
		if err := json.Unmarshal(val, &st); err != nil {
			return err
		}
		stories = append(stories, &st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	sort.Slice(stories, func(i, j int) bool { return store.StoryNewer(stories[i], stories[j]) })
	return stories, nil
}

func kpiKey(date time.Time) string {
	return kpiKeyPrefix + models.DateKey(store.NormalizeDate(date))
}

func (s *Store) FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error) {
	var k models.AccountKpi
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, kpiKey(date), &k)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get kpi: %w", err)
	}
	if !found {
		return nil, nil
	}
	k.Date = store.NormalizeDate(k.Date)
	return &k, nil
}

func (s *Store) LatestKpi(ctx context.Context) (*models.AccountKpi, error) {
	var latest *models.AccountKpi
	err := s.scanPrefix(kpiKeyPrefix, true, 1, func(val []byte) error {
		var k models.AccountKpi
		if err := json.Unmarshal(val, &k); err != nil {
			return err
		}
		k.Date = store.NormalizeDate(k.Date)
		latest = &k
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("latest kpi: %w", err)
	}
	return latest, nil
}

func (s *Store) UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error) {
	if k == nil || k.Date.IsZero() {
		return nil, store.ErrInvalidKey
	}
	var out models.AccountKpi
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := kpiKey(k.Date)
		now := store.Timestamp()
		cur := models.AccountKpi{}
		found, err := getJSON(txn, key, &cur)
		if err != nil {
			return err
		}
		if !found {
			cur = models.AccountKpi{Date: store.NormalizeDate(k.Date), CreatedAt: now}
		}
		cur.Merge(k)
		cur.Date = store.NormalizeDate(cur.Date)
		cur.UpdatedAt = now
		out = cur
		return setJSON(txn, key, &cur)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert kpi: %w", err)
	}
	return &out, nil
}

func (s *Store) ListKpis(ctx context.Context) ([]*models.AccountKpi, error) {
	kpis := make([]*models.AccountKpi, 0)
	err := s.scanPrefix(kpiKeyPrefix, false, 0, func(val []byte) error {
		var k models.AccountKpi
		if err := json.Unmarshal(val, &k); err != nil {
			return err
		}
		k.Date = store.NormalizeDate(k.Date)
		kpis = append(kpis, &k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}
	return kpis, nil
}
