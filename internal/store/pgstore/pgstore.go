// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package pgstore implements store.RecordStore on PostgreSQL through a pgx
// connection pool.
//
// Every upsert is one INSERT ... ON CONFLICT DO UPDATE ... RETURNING
// statement. COALESCE(EXCLUDED.col, table.col) keeps stored values for
// fields the caller did not observe, and the row lock taken by ON CONFLICT
// serializes concurrent upserts of the same key.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS posts (
	post_id     TEXT PRIMARY KEY,
	caption     TEXT,
	posted_at   TIMESTAMPTZ,
	likes       BIGINT,
	comments    BIGINT,
	shares      BIGINT,
	saves       BIGINT,
	reach       BIGINT,
	impressions BIGINT,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts (posted_at DESC);

CREATE TABLE IF NOT EXISTS stories (
	story_id       TEXT PRIMARY KEY,
	posted_at      TIMESTAMPTZ,
	replies        BIGINT,
	shares         BIGINT,
	impressions    BIGINT,
	profile_visits BIGINT,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stories_posted_at ON stories (posted_at DESC);

CREATE TABLE IF NOT EXISTS account_kpis (
	date                   DATE PRIMARY KEY,
	followers              BIGINT,
	new_followers          BIGINT,
	profile_views          BIGINT,
	reach                  BIGINT,
	pinned_reel_comments   BIGINT,
	pinned_reel_shares     BIGINT,
	pinned_reel_likes      BIGINT,
	pinned_reel_saves      BIGINT,
	pinned_reel_watch_time BIGINT,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);`

const postColumns = `post_id, caption, posted_at, likes, comments, shares, saves, reach, impressions, created_at, updated_at`

const upsertPostSQL = `INSERT INTO posts (` + postColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
ON CONFLICT (post_id) DO UPDATE SET
	caption = COALESCE(EXCLUDED.caption, posts.caption),
	posted_at = COALESCE(EXCLUDED.posted_at, posts.posted_at),
	likes = COALESCE(EXCLUDED.likes, posts.likes),
	comments = COALESCE(EXCLUDED.comments, posts.comments),
	shares = COALESCE(EXCLUDED.shares, posts.shares),
	saves = COALESCE(EXCLUDED.saves, posts.saves),
	reach = COALESCE(EXCLUDED.reach, posts.reach),
	impressions = COALESCE(EXCLUDED.impressions, posts.impressions),
	updated_at = EXCLUDED.updated_at
RETURNING ` + postColumns

const storyColumns = `story_id, posted_at, replies, shares, impressions, profile_visits, created_at, updated_at`

const upsertStorySQL = `INSERT INTO stories (` + storyColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (story_id) DO UPDATE SET
	posted_at = COALESCE(EXCLUDED.posted_at, stories.posted_at),
	replies = COALESCE(EXCLUDED.replies, stories.replies),
	shares = COALESCE(EXCLUDED.shares, stories.shares),
	impressions = COALESCE(EXCLUDED.impressions, stories.impressions),
	profile_visits = COALESCE(EXCLUDED.profile_visits, stories.profile_visits),
	updated_at = EXCLUDED.updated_at
RETURNING ` + storyColumns

const kpiColumns = `date, followers, new_followers, profile_views, reach, pinned_reel_comments,
	pinned_reel_shares, pinned_reel_likes, pinned_reel_saves, pinned_reel_watch_time, created_at, updated_at`

const upsertKpiSQL = `INSERT INTO account_kpis (` + kpiColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
ON CONFLICT (date) DO UPDATE SET
	followers = COALESCE(EXCLUDED.followers, account_kpis.followers),
	new_followers = COALESCE(EXCLUDED.new_followers, account_kpis.new_followers),
	profile_views = COALESCE(EXCLUDED.profile_views, account_kpis.profile_views),
	reach = COALESCE(EXCLUDED.reach, account_kpis.reach),
	pinned_reel_comments = COALESCE(EXCLUDED.pinned_reel_comments, account_kpis.pinned_reel_comments),
	pinned_reel_shares = COALESCE(EXCLUDED.pinned_reel_shares, account_kpis.pinned_reel_shares),
	pinned_reel_likes = COALESCE(EXCLUDED.pinned_reel_likes, account_kpis.pinned_reel_likes),
	pinned_reel_saves = COALESCE(EXCLUDED.pinned_reel_saves, account_kpis.pinned_reel_saves),
	pinned_reel_watch_time = COALESCE(EXCLUDED.pinned_reel_watch_time, account_kpis.pinned_reel_watch_time),
	updated_at = EXCLUDED.updated_at
RETURNING ` + kpiColumns

// Store is a PostgreSQL-backed RecordStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.RecordStore = (*Store)(nil)

// Open creates the pool, verifies the connection and creates the schema.
func Open(ctx context.Context, cfg *config.PostgresConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}

	logging.Info().Int32("max_conns", poolCfg.MaxConns).Msg("Connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close closes the pool.
// Ping acquires a connection and runs an empty statement.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Truncate empties every table. Used by tests to get an empty store.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE posts, stories, account_kpis`)
	return err
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.PostID, &p.Caption, &p.PostedAt, &p.Likes, &p.Comments, &p.Shares,
		&p.Saves, &p.Reach, &p.Impressions, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PostedAt = utcPtr(p.PostedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func scanStory(row pgx.Row) (*models.Story, error) {
	var st models.Story
	if err := row.Scan(&st.StoryID, &st.PostedAt, &st.Replies, &st.Shares, &st.Impressions,
		&st.ProfileVisits, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.PostedAt = utcPtr(st.PostedAt)
	st.CreatedAt = st.CreatedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return &st, nil
}

func scanKpi(row pgx.Row) (*models.AccountKpi, error) {
	var k models.AccountKpi
	if err := row.Scan(&k.Date, &k.Followers, &k.NewFollowers, &k.ProfileViews, &k.Reach,
		&k.PinnedReelComments, &k.PinnedReelShares, &k.PinnedReelLikes, &k.PinnedReelSaves,
		&k.PinnedReelWatchTime, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.Date = store.NormalizeDate(k.Date)
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	return &k, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// findOne runs a single-row query; pgx.ErrNoRows becomes (nil, nil).
func findOne[T any](ctx context.Context, s *Store, scan func(pgx.Row) (*T, error), what, query string, args ...interface{}) (*T, error) {
	v, err := scan(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", what, err)
	}
	return v, nil
}

func list[T any](ctx context.Context, s *Store, scan func(pgx.Row) (*T, error), what, query string) ([]*T, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return out, nil
}

func (s *Store) FindPost(ctx context.Context, postID string) (*models.Post, error) {
	return findOne(ctx, s, scanPost, "post",
		`SELECT `+postColumns+` FROM posts WHERE post_id = $1`, postID)
}

func (s *Store) UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p == nil || p.PostID == "" {
		return nil, store.ErrInvalidKey
	}
	out, err := scanPost(s.pool.QueryRow(ctx, upsertPostSQL,
		p.PostID, p.Caption, p.PostedAt, p.Likes, p.Comments, p.Shares, p.Saves,
		p.Reach, p.Impressions, store.Timestamp()))
	if err != nil {
		return nil, fmt.Errorf("upsert post %s: %w", p.PostID, err)
	}
	return out, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return list(ctx, s, scanPost, "posts",
		`SELECT `+postColumns+` FROM posts
		ORDER BY posted_at DESC NULLS LAST, post_id COLLATE "C" DESC`)
}

func (s *Store) FindStory(ctx context.Context, storyID string) (*models.Story, error) {
	return findOne(ctx, s, scanStory, "story",
		`SELECT `+storyColumns+` FROM stories WHERE story_id = $1`, storyID)
}

const storyOrder = ` ORDER BY posted_at DESC NULLS LAST, updated_at DESC, story_id COLLATE "C" DESC`

func (s *Store) LatestStory(ctx context.Context) (*models.Story, error) {
	return findOne(ctx, s, scanStory, "latest story",
		`SELECT `+storyColumns+` FROM stories`+storyOrder+` LIMIT 1`)
}

func (s *Store) UpsertStory(ctx context.Context, st *models.Story) (*models.Story, error) {
	if st == nil || st.StoryID == "" {
		return nil, store.ErrInvalidKey
	}
	out, err := scanStory(s.pool.QueryRow(ctx, upsertStorySQL,
		st.StoryID, st.PostedAt, st.Replies, st.Shares, st.Impressions, st.ProfileVisits,
		store.Timestamp()))
	if err != nil {
		return nil, fmt.Errorf("upsert story %s: %w", st.StoryID, err)
	}
	return out, nil
}

func (s *Store) ListStories(ctx context.Context) ([]*models.Story, error) {
	return list(ctx, s, scanStory, "stories", `SELECT `+storyColumns+` FROM stories`+storyOrder)
}

func (s *Store) FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error) {
	return findOne(ctx, s, scanKpi, "kpi",
		`SELECT `+kpiColumns+` FROM account_kpis WHERE date = $1`, store.NormalizeDate(date))
}

func (s *Store) LatestKpi(ctx context.Context) (*models.AccountKpi, error) {
	return findOne(ctx, s, scanKpi, "latest kpi",
		`SELECT `+kpiColumns+` FROM account_kpis ORDER BY date DESC LIMIT 1`)
}

func (s *Store) UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error) {
	if k == nil || k.Date.IsZero() {
		return nil, store.ErrInvalidKey
	}
	date := store.NormalizeDate(k.Date)
	out, err := scanKpi(s.pool.QueryRow(ctx, upsertKpiSQL,
		date, k.Followers, k.NewFollowers, k.ProfileViews, k.Reach,
		k.PinnedReelComments, k.PinnedReelShares, k.PinnedReelLikes, k.PinnedReelSaves,
		k.PinnedReelWatchTime, store.Timestamp()))
	if err != nil {
		return nil, fmt.Errorf("upsert kpi %s: %w", models.DateKey(date), err)
	}
	return out, nil
}

func (s *Store) ListKpis(ctx context.Context) ([]*models.AccountKpi, error) {
	return list(ctx, s, scanKpi, "kpis", `SELECT `+kpiColumns+` FROM account_kpis ORDER BY date`)
}
