// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
database_schema.go - Database Schema Management

Tables:
  - posts: feed media keyed by Graph media id
  - stories: story media keyed by Graph media id
  - account_kpis: one row per calendar day (UTC)

Every metric column is nullable. NULL means "never observed" and is distinct
from an observed zero. Upserts use COALESCE(excluded.col, table.col) so a NULL
in the incoming row never clears a stored value.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		post_id TEXT PRIMARY KEY,
		caption TEXT,
		posted_at TIMESTAMP,
		likes BIGINT,
		comments BIGINT,
		shares BIGINT,
		saves BIGINT,
		reach BIGINT,
		impressions BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS stories (
		story_id TEXT PRIMARY KEY,
		posted_at TIMESTAMP,
		replies BIGINT,
		shares BIGINT,
		impressions BIGINT,
		profile_visits BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS account_kpis (
		date DATE PRIMARY KEY,
		followers BIGINT,
		new_followers BIGINT,
		profile_views BIGINT,
		reach BIGINT,
		pinned_reel_comments BIGINT,
		pinned_reel_shares BIGINT,
		pinned_reel_likes BIGINT,
		pinned_reel_saves BIGINT,
		pinned_reel_watch_time BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
}

// createIndexes builds secondary indexes used by the "latest" and list queries.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at);`,
	`CREATE INDEX IF NOT EXISTS idx_stories_posted_at ON stories(posted_at);`,
}
