// Copyright (c) 2026 Folio Works. All rights reserved.

// Package post implements the writing content domain of the Folio platform:
// authoring, public listings, search, the view counter, and the author
// dashboard aggregates.
package post

import (
	"time"

	"github.com/folioworks/folio/internal/profile"
)

// Post is a single piece of writing owned by a member.
//
// # Visibility
//
// IsPublic controls exposure: public posts appear in listings and search,
// private posts are visible only to their owner and to admins.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	IsPublic  bool      `json:"is_public"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithAuthor couples a post with the trimmed public card of its author, the
// shape served by listings, search, and single-post reads.
type WithAuthor struct {
	Post
	Author profile.PublicCard `json:"author"`
}

// ChangeType labels the lifecycle transition carried by a [ChangeEvent].
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is the realtime notification emitted on every post mutation.
//
// The post ID doubles as the consumer-side deduplication key: transports may
// deliver an event more than once, and consumers collapse duplicates by
// (ID, Type) pairs.
type ChangeEvent struct {
	Type ChangeType `json:"type"`
	Post *Post      `json:"post"`
}

// Dashboard aggregates an author's content statistics.
type Dashboard struct {
	PostsCount  int64  `json:"posts_count"`
	TotalViews  int64  `json:"total_views"`
	RecentPosts []Post `json:"recent_posts"`
}
