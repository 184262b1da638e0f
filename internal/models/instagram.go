// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package models

import "time"

// Post is a feed media item.
type Post struct {
	PostID      string     `json:"postId" bson:"_id"`
	Caption     *string    `json:"caption,omitempty" bson:"caption,omitempty"`
	PostedAt    *time.Time `json:"postedAt,omitempty" bson:"posted_at,omitempty"`
	Likes       *int64     `json:"likes,omitempty" bson:"likes,omitempty"`
	Comments    *int64     `json:"comments,omitempty" bson:"comments,omitempty"`
	Shares      *int64     `json:"shares,omitempty" bson:"shares,omitempty"`
	Saves       *int64     `json:"saves,omitempty" bson:"saves,omitempty"`
	Reach       *int64     `json:"reach,omitempty" bson:"reach,omitempty"`
	Impressions *int64     `json:"impressions,omitempty" bson:"impressions,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Merge copies every observed field of src onto p.
func (p *Post) Merge(src *Post) {
	if src == nil {
		return
	}
	merge(&p.Caption, src.Caption)
	merge(&p.PostedAt, src.PostedAt)
	merge(&p.Likes, src.Likes)
	merge(&p.Comments, src.Comments)
	merge(&p.Shares, src.Shares)
	merge(&p.Saves, src.Saves)
	merge(&p.Reach, src.Reach)
	merge(&p.Impressions, src.Impressions)
}

// Story is a story media item.
type Story struct {
	StoryID       string     `json:"storyId" bson:"_id"`
	PostedAt      *time.Time `json:"postedAt,omitempty" bson:"posted_at,omitempty"`
	Replies       *int64     `json:"replies,omitempty" bson:"replies,omitempty"`
	Shares        *int64     `json:"shares,omitempty" bson:"shares,omitempty"`
	Impressions   *int64     `json:"impressions,omitempty" bson:"impressions,omitempty"`
	ProfileVisits *int64     `json:"profileVisits,omitempty" bson:"profile_visits,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Merge copies every observed field of src onto s.
func (s *Story) Merge(src *Story) {
	if src == nil {
		return
	}
	merge(&s.PostedAt, src.PostedAt)
	merge(&s.Replies, src.Replies)
	merge(&s.Shares, src.Shares)
	merge(&s.Impressions, src.Impressions)
	merge(&s.ProfileVisits, src.ProfileVisits)
}

// PinnedReel is the reel surfaced at the top of the profile grid.
// It is fetched every cycle but has no store collection yet.
type PinnedReel struct {
	ReelID       string     `json:"reelId"`
	Caption      *string    `json:"caption,omitempty"`
	PostedAt     *time.Time `json:"postedAt,omitempty"`
	Likes        *int64     `json:"likes,omitempty"`
	Comments     *int64     `json:"comments,omitempty"`
	Shares       *int64     `json:"shares,omitempty"`
	Saves        *int64     `json:"saves,omitempty"`
	Reach        *int64     `json:"reach,omitempty"`
	Impressions  *int64     `json:"impressions,omitempty"`
	AvgWatchTime *int64     `json:"avgWatchTime,omitempty"`
}

// Merge copies every observed field of src onto r.
func (r *PinnedReel) Merge(src *PinnedReel) {
	if src == nil {
		return
	}
	merge(&r.Caption, src.Caption)
	merge(&r.PostedAt, src.PostedAt)
	merge(&r.Likes, src.Likes)
	merge(&r.Comments, src.Comments)
	merge(&r.Shares, src.Shares)
	merge(&r.Saves, src.Saves)
	merge(&r.Reach, src.Reach)
	merge(&r.Impressions, src.Impressions)
	merge(&r.AvgWatchTime, src.AvgWatchTime)
}

// AccountKpi is the daily account snapshot. Date is midnight UTC of the
// calendar day it describes.
type AccountKpi struct {
	Date                time.Time `json:"date" bson:"_id"`
	Followers           *int64    `json:"followers,omitempty" bson:"followers,omitempty"`
	NewFollowers        *int64    `json:"newFollowers,omitempty" bson:"new_followers,omitempty"`
	ProfileViews        *int64    `json:"profileViews,omitempty" bson:"profile_views,omitempty"`
	Reach               *int64    `json:"reach,omitempty" bson:"reach,omitempty"`
	PinnedReelComments  *int64    `json:"pinnedReelComments,omitempty" bson:"pinned_reel_comments,omitempty"`
	PinnedReelShares    *int64    `json:"pinnedReelShares,omitempty" bson:"pinned_reel_shares,omitempty"`
	PinnedReelLikes     *int64    `json:"pinnedReelLikes,omitempty" bson:"pinned_reel_likes,omitempty"`
	PinnedReelSaves     *int64    `json:"pinnedReelSaves,omitempty" bson:"pinned_reel_saves,omitempty"`
	PinnedReelWatchTime *int64    `json:"pinnedReelWatchTime,omitempty" bson:"pinned_reel_watch_time,omitempty"`
	CreatedAt           time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" bson:"updated_at"`
}

// Merge copies every observed field of src onto k. Date is the key and is
// never merged.
func (k *AccountKpi) Merge(src *AccountKpi) {
	if src == nil {
		return
	}
	merge(&k.Followers, src.Followers)
	merge(&k.NewFollowers, src.NewFollowers)
	merge(&k.ProfileViews, src.ProfileViews)
	merge(&k.Reach, src.Reach)
	merge(&k.PinnedReelComments, src.PinnedReelComments)
	merge(&k.PinnedReelShares, src.PinnedReelShares)
	merge(&k.PinnedReelLikes, src.PinnedReelLikes)
	merge(&k.PinnedReelSaves, src.PinnedReelSaves)
	merge(&k.PinnedReelWatchTime, src.PinnedReelWatchTime)
}

// Update is the payload broadcast on the live update topic.
type Update struct {
	Category string      `json:"category"`
	Data     interface{} `json:"data"`
	SentAt   time.Time   `json:"sentAt"`
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

func merge[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
