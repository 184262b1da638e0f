// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package mongostore implements store.RecordStore on MongoDB.
//
// Each entity kind lives in its own collection with the natural key as _id.
// Upserts are single FindOneAndUpdate calls: observed fields go into $set,
// created_at into $setOnInsert, so a partial entity never clears stored
// fields and concurrent upserts of one key are serialized by the server.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/store"
)

// Collection names
const (
	postsCollection   = "posts"
	storiesCollection = "stories"
	kpisCollection    = "account_kpis"
)

// Store is a MongoDB-backed RecordStore.
type Store struct {
	client  *mongo.Client
	posts   *mongo.Collection
	stories *mongo.Collection
	kpis    *mongo.Collection
	timeout time.Duration
}

var _ store.RecordStore = (*Store)(nil)

// Open connects to cfg.URI, verifies the connection and ensures indexes.
func Open(ctx context.Context, cfg *config.MongoConfig) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: connection URI is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientOptions := options.Client().ApplyURI(cfg.URI).
		SetMaxPoolSize(20).
		SetConnectTimeout(timeout).
		SetSocketTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:  client,
		posts:   db.Collection(postsCollection),
		stories: db.Collection(storiesCollection),
		kpis:    db.Collection(kpisCollection),
		timeout: timeout,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logging.Info().Str("database", cfg.Database).Msg("Connected to MongoDB")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	byPostedAt := mongo.IndexModel{
		Keys:    bson.D{{Key: "posted_at", Value: -1}},
		Options: options.Index().SetName("idx_posted_at"),
	}
	if _, err := s.posts.Indexes().CreateOne(ctx, byPostedAt); err != nil {
		return fmt.Errorf("create posts index: %w", err)
	}
	if _, err := s.stories.Indexes().CreateOne(ctx, byPostedAt); err != nil {
		return fmt.Errorf("create stories index: %w", err)
	}
	return nil
}

// Close disconnects the client.
// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		logging.Error().Err(err).Msg("Failed to disconnect MongoDB client")
		return err
	}
	return nil
}

// Drop removes every collection. Used by tests to get an empty store.
func (s *Store) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.posts, s.stories, s.kpis} {
		if err := c.Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", c.Name(), err)
		}
	}
	return s.ensureIndexes(ctx)
}

// setField appends name to doc when v has been observed.
func setField[T any](doc bson.D, name string, v *T) bson.D {
	if v == nil {
		return doc
	}
	return append(doc, bson.E{Key: name, Value: *v})
}

// upsertOne applies set/created_at to the document with the given _id and
// decodes the result into out.
//
// Two concurrent upserts that both miss can race on the insert; the loser
// gets a duplicate key error and the retry turns into a plain update.
func upsertOne(ctx context.Context, c *mongo.Collection, id interface{}, set bson.D, out interface{}) error {
	now := store.Timestamp()
	set = append(set, bson.E{Key: "updated_at", Value: now})
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = c.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(out)
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", c.Name(), err)
	}
	return nil
}

// findOne decodes the document matching filter into out. It reports false
// when there is none.
func findOne(ctx context.Context, c *mongo.Collection, filter bson.D, out interface{}, opts ...*options.FindOneOptions) (bool, error) {
	err := c.FindOne(ctx, filter, opts...).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	return true, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, order bson.D) ([]*T, error) {
	cursor, err := c.Find(ctx, bson.D{}, options.Find().SetSort(order))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.Name(), err)
	}
	defer cursor.Close(ctx)

	out := make([]*T, 0)
	for cursor.Next(ctx) {
		v := new(T)
		if err := cursor.Decode(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
		}
		out = append(out, v)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.Name(), err)
	}
	return out, nil
}

// newestFirst sorts by posted_at descending. MongoDB places missing fields
// before present ones in descending order, so callers re-sort in memory with
// the shared ordering helpers.
var newestFirst = bson.D{{Key: "posted_at", Value: -1}, {Key: "_id", Value: -1}}

func (s *Store) FindPost(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	found, err := findOne(ctx, s.posts, bson.D{{Key: "_id", Value: postID}}, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpsertPost(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p == nil || p.PostID == "" {
		return nil, store.ErrInvalidKey
	}
	set := bson.D{}
	set = setField(set, "caption", p.Caption)
	set = setField(set, "posted_at", p.PostedAt)
	set = setField(set, "likes", p.Likes)
	set = setField(set, "comments", p.Comments)
	set = setField(set, "shares", p.Shares)
	set = setField(set, "saves", p.Saves)
	set = setField(set, "reach", p.Reach)
	set = setField(set, "impressions", p.Impressions)

	var out models.Post
	if err := upsertOne(ctx, s.posts, p.PostID, set, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := findAll[models.Post](ctx, s.posts, newestFirst)
	if err != nil {
		return nil, err
	}
	sortPosts(posts)
	return posts, nil
}

func (s *Store) FindStory(ctx context.Context, storyID string) (*models.Story, error) {
	var st models.Story
	found, err := findOne(ctx, s.stories, bson.D{{Key: "_id", Value: storyID}}, &st)
	if err != nil || !found {
		return nil, err
	}
	return &st, nil
}

func (s *Store) LatestStory(ctx context.Context) (*models.Story, error) {
	stories, err := s.ListStories(ctx)
	if err != nil || len(stories) == 0 {
		return nil, err
	}
	return stories[0], nil
}

func (s *Store) UpsertStory(ctx context.Context, st *models.Story) (*models.Story, error) {
	if st == nil || st.StoryID == "" {
		return nil, store.ErrInvalidKey
	}
	set := bson.D{}
	set = setField(set, "posted_at", st.PostedAt)
	set = setField(set, "replies", st.Replies)
	set = setField(set, "shares", st.Shares)
	set = setField(set, "impressions", st.Impressions)
	set = setField(set, "profile_visits", st.ProfileVisits)

	var out models.Story
	if err := upsertOne(ctx, s.stories, st.StoryID, set, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListStories(ctx context.Context) ([]*models.Story, error) {
	stories, err := findAll[models.Story](ctx, s.stories, newestFirst)
	if err != nil {
		return nil, err
	}
	sortStories(stories)
	return stories, nil
}

func (s *Store) FindKpiByDate(ctx context.Context, date time.Time) (*models.AccountKpi, error) {
	var k models.AccountKpi
	found, err := findOne(ctx, s.kpis, bson.D{{Key: "_id", Value: store.NormalizeDate(date)}}, &k)
	if err != nil || !found {
		return nil, err
	}
	return normalizeKpi(&k), nil
}

func (s *Store) LatestKpi(ctx context.Context) (*models.AccountKpi, error) {
	var k models.AccountKpi
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	found, err := findOne(ctx, s.kpis, bson.D{}, &k, opts)
	if err != nil || !found {
		return nil, err
	}
	return normalizeKpi(&k), nil
}

func (s *Store) UpsertKpi(ctx context.Context, k *models.AccountKpi) (*models.AccountKpi, error) {
	if k == nil || k.Date.IsZero() {
		return nil, store.ErrInvalidKey
	}
	set := bson.D{}
	set = setField(set, "followers", k.Followers)
	set = setField(set, "new_followers", k.NewFollowers)
	set = setField(set, "profile_views", k.ProfileViews)
	set = setField(set, "reach", k.Reach)
	set = setField(set, "pinned_reel_comments", k.PinnedReelComments)
	set = setField(set, "pinned_reel_shares", k.PinnedReelShares)
	set = setField(set, "pinned_reel_likes", k.PinnedReelLikes)
	set = setField(set, "pinned_reel_saves", k.PinnedReelSaves)
	set = setField(set, "pinned_reel_watch_time", k.PinnedReelWatchTime)

	var out models.AccountKpi
	if err := upsertOne(ctx, s.kpis, store.NormalizeDate(k.Date), set, &out); err != nil {
		return nil, err
	}
	return normalizeKpi(&out), nil
}

func (s *Store) ListKpis(ctx context.Context) ([]*models.AccountKpi, error) {
	kpis, err := findAll[models.AccountKpi](ctx, s.kpis, bson.D{{Key: "_id", Value: 1}})
	if err != nil {
		return nil, err
	}
	for _, k := range kpis {
		normalizeKpi(k)
	}
	return kpis, nil
}

// normalizeKpi converts decoded datetimes back to UTC.
func normalizeKpi(k *models.AccountKpi) *models.AccountKpi {
	k.Date = k.Date.UTC()
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	return k
}

func sortPosts(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool { return store.PostNewer(posts[i], posts[j]) })
}

func sortStories(stories []*models.Story) {
	sort.SliceStable(stories, func(i, j int) bool { return store.StoryNewer(stories[i], stories[j]) })
}
