// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/store"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const postColumns = `post_id, caption, posted_at, likes, comments, shares, saves, reach, impressions, created_at, updated_at`

const upsertPostSQL = `INSERT INTO posts (` + postColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (post_id) DO UPDATE SET
	caption = COALESCE(excluded.caption, caption),
	posted_at = COALESCE(excluded.posted_at, posted_at),
	likes = COALESCE(excluded.likes, likes),
	comments = COALESCE(excluded.comments, comments),
	shares = COALESCE(excluded.shares, shares),
	saves = COALESCE(excluded.saves, saves),
	reach = COALESCE(excluded.reach, reach),
	impressions = COALESCE(excluded.impressions, impressions),
	updated_at = excluded.updated_at`

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		p                                                  models.Post
		caption                                            sql.NullString
		postedAt                                           sql.NullTime
		likes, comments, shares, saves, reach, impressions sql.NullInt64
	)
	if err := row.Scan(&p.PostID, &caption, &postedAt, &likes, &comments, &shares, &saves,
		&reach, &impressions, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Caption = stringPtr(caption)
	p.PostedAt = timePtr(postedAt)
	p.Likes = intPtr(likes)
	p.Comments = intPtr(comments)
	p.Shares = intPtr(shares)
	p.Saves = intPtr(saves)
	p.Reach = intPtr(reach)
	p.Impressions = intPtr(impressions)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// FindPost returns the post with postID, or (nil, nil).
func (db *DB) FindPost(ctx context.Context, postID string) (*models.Post, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	p, err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE post_id = ?`, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post %s: %w", postID, err)
	}
	return p, nil
}

// UpsertPost merges p into the stored row and returns the merged post.
func (db *DB) UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p == nil || p.PostID == "" {
		return nil, store.ErrInvalidKey
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	mu := db.acquireKeyLock("post:" + p.PostID)
	defer mu.Unlock()

	var out *models.Post
	err := db.withRetry(ctx, "upsert post", func(ctx context.Context) error {
		now := store.Timestamp()
		return db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, upsertPostSQL,
				p.PostID, argString(p.Caption), argTime(p.PostedAt),
				argInt(p.Likes), argInt(p.Comments), argInt(p.Shares), argInt(p.Saves),
				argInt(p.Reach), argInt(p.Impressions), now, now,
			); err != nil {
				return err
			}
			var err error
			out, err = scanPost(tx.QueryRowContext(ctx,
				`SELECT `+postColumns+` FROM posts WHERE post_id = ?`, p.PostID))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPosts returns all posts, newest first with undated posts last.
func (db *DB) ListPosts(ctx context.Context) ([]*models.Post, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY posted_at DESC NULLS LAST, post_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

const storyColumns = `story_id, posted_at, replies, shares, impressions, profile_visits, created_at, updated_at`

const upsertStorySQL = `INSERT INTO stories (` + storyColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (story_id) DO UPDATE SET
	posted_at = COALESCE(excluded.posted_at, posted_at),
	replies = COALESCE(excluded.replies, replies),
	shares = COALESCE(excluded.shares, shares),
	impressions = COALESCE(excluded.impressions, impressions),
	profile_visits = COALESCE(excluded.profile_visits, profile_visits),
	updated_at = excluded.updated_at`

func scanStory(row rowScanner) (*models.Story, error) {
	var (
		s                                    models.Story
		postedAt                             sql.NullTime
		replies, shares, impressions, visits sql.NullInt64
	)
	if err := row.Scan(&s.StoryID, &postedAt, &replies, &shares, &impressions, &visits,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.PostedAt = timePtr(postedAt)
	s.Replies = intPtr(replies)
	s.Shares = intPtr(shares)
	s.Impressions = intPtr(impressions)
	s.ProfileVisits = intPtr(visits)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// FindStory returns the story with storyID, or (nil, nil).
func (db *DB) FindStory(ctx context.Context, storyID string) (*models.Story, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	s, err := scanStory(db.conn.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE story_id = ?`, storyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find story %s: %w", storyID, err)
	}
	return s, nil
}

// LatestStory returns the most recently posted story, or (nil, nil).
func (db *DB) LatestStory(ctx context.Context) (*models.Story, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	s, err := scanStory(db.conn.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM stories
		ORDER BY posted_at DESC NULLS LAST, updated_at DESC, story_id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest story: %w", err)
	}
	return s, nil
}

// UpsertStory merges s into the stored row and returns the merged story.
func (db *DB) UpsertStory(ctx context.Context, s *models.Story) (*models.Story, error) {
	if s == nil || s.StoryID == "" {
		return nil, store.ErrInvalidKey
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	mu := db.acquireKeyLock("story:" + s.StoryID)
	defer mu.Unlock()

	var out *models.Story
	err := db.withRetry(ctx, "upsert story", func(ctx context.Context) error {
		now := store.Timestamp()
		return db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, upsertStorySQL,
				s.StoryID, argTime(s.PostedAt), argInt(s.Replies), argInt(s.Shares),
				argInt(s.Impressions), argInt(s.ProfileVisits), now, now,
			); err != nil {
				return err
			}
			var err error
			out, err = scanStory(tx.QueryRowContext(ctx,
				`SELECT `+storyColumns+` FROM stories WHERE story_id = ?`, s.StoryID))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStories returns all stories in LatestStory order.
func (db *DB) ListStories(ctx context.Context) ([]*models.Story, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM stories ORDER BY posted_at DESC NULLS LAST, updated_at DESC, story_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	stories := make([]*models.Story, 0)
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

const kpiColumns = `date, followers, new_followers, profile_views, reach,
	pinned_reel_comments, pinned_reel_shares, pinned_reel_likes, pinned_reel_saves, pinned_reel_watch_time,
	created_at, updated_at`

const upsertKpiSQL = `INSERT INTO account_kpis (` + kpiColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (date) DO UPDATE SET
	followers = COALESCE(excluded.followers, followers),
	new_followers = COALESCE(excluded.new_followers, new_followers),
	profile_views = COALESCE(excluded.profile_views, profile_views),
	reach = COALESCE(excluded.reach, reach),
	pinned_reel_comments = COALESCE(excluded.pinned_reel_comments, pinned_reel_comments),
	pinned_reel_shares = COALESCE(excluded.pinned_reel_shares, pinned_reel_shares),
	pinned_reel_likes = COALESCE(excluded.pinned_reel_likes, pinned_reel_likes),
	pinned_reel_saves = COALESCE(excluded.pinned_reel_saves, pinned_reel_saves),
	pinned_reel_watch_time = COALESCE(excluded.pinned_reel_watch_time, pinned_reel_watch_time),
	updated_at = excluded.updated_at`

func scanKpi(row rowScanner) (*models.AccountKpi, error) {
	var (
		k                                                   models.AccountKpi
		followers, newFollowers, profileViews, reach        sql.NullInt64
		prComments, prShares, prLikes, prSaves, prWatchTime sql.NullInt64
	)
	if err := row.Scan(&k.Date, &followers, &newFollowers, &profileViews, &reach,
		&prComments, &prShares, &prLikes, &prSaves, &prWatchTime,
		&k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.Date = store.NormalizeDate(k.Date)
	k.Followers = intPtr(followers)
	k.NewFollowers = intPtr(newFollowers)
	k.ProfileViews = intPtr(profileViews)
	k.Reach = intPtr(reach)
	k.PinnedReelComments = intPtr(prComments)
	k.PinnedReelShares = intPtr(prShares)
	k.PinnedReelLikes = intPtr(prLikes)
	k.PinnedReelSaves = intPtr(prSaves)
	k.PinnedReelWatchTime = intPtr(prWatchTime)
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	return &k, nil
}

// FindKpiByDate returns the snapshot for the calendar day of date, or (nil, nil).
func (db *DB) FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	key := store.NormalizeDate(date)
	k, err := scanKpi(db.conn.QueryRowContext(ctx,
		`SELECT `+kpiColumns+` FROM account_kpis WHERE date = CAST(? AS DATE)`, models.DateKey(key)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find kpi %s: %w", models.DateKey(key), err)
	}
	return k, nil
}

// LatestKpi returns the snapshot with the greatest date, or (nil, nil).
func (db *DB) LatestKpi(ctx context.Context) (*models.AccountKpi, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	k, err := scanKpi(db.conn.QueryRowContext(ctx,
		`SELECT `+kpiColumns+` FROM account_kpis ORDER BY date DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest kpi: %w", err)
	}
	return k, nil
}

// UpsertKpi merges k into the stored snapshot for its date.
func (db *DB) UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error) {
	if k == nil || k.Date.IsZero() {
		return nil, store.ErrInvalidKey
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	dateKey := models.DateKey(store.NormalizeDate(k.Date))
	mu := db.acquireKeyLock("kpi:" + dateKey)
	defer mu.Unlock()

	var out *models.AccountKpi
	err := db.withRetry(ctx, "upsert kpi", func(ctx context.Context) error {
		now := store.Timestamp()
		return db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, upsertKpiSQL,
				dateKey, argInt(k.Followers), argInt(k.NewFollowers), argInt(k.ProfileViews), argInt(k.Reach),
				argInt(k.PinnedReelComments), argInt(k.PinnedReelShares), argInt(k.PinnedReelLikes),
				argInt(k.PinnedReelSaves), argInt(k.PinnedReelWatchTime), now, now,
			); err != nil {
				return err
			}
			var err error
			out, err = scanKpi(tx.QueryRowContext(ctx,
				`SELECT `+kpiColumns+` FROM account_kpis WHERE date = CAST(? AS DATE)`, dateKey))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListKpis returns every snapshot in ascending date order.
func (db *DB) ListKpis(ctx context.Context) ([]*models.AccountKpi, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+kpiColumns+` FROM account_kpis ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}
	defer rows.Close()

	kpis := make([]*models.AccountKpi, 0)
	for rows.Next() {
		k, err := scanKpi(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kpi: %w", err)
		}
		kpis = append(kpis, k)
	}
	return kpis, rows.Err()
}

// inTx runs fn in a transaction, committing on success.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
