// Copyright (c) 2026 Folio Works. All rights reserved.

package post

import (
	"context"

	"github.com/folioworks/folio/pkg/pagination"
)

// Repository defines the data access contract for posts.
type Repository interface {
	// Create persists a brand-new post.
	Create(ctx context.Context, post *Post) error

	// FindByID returns the post with its author card.
	//
	// Returns [apperr.NotFound] if the post does not exist. Visibility is
	// enforced by the service, not here.
	FindByID(ctx context.Context, id string) (*WithAuthor, error)

	// ListPublic returns one page of public posts, newest first, optionally
	// narrowed to posts carrying any of the given tags, along with
	// the total number of public posts for pagination metadata.
	ListPublic(ctx context.Context, params pagination.Params, tags []string) ([]WithAuthor, int64, error)

	// ListByUser returns every post owned by userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]Post, error)

	// Update overwrites the post's mutable fields.
	Update(ctx context.Context, post *Post) error

	// Delete permanently removes the post.
	Delete(ctx context.Context, id string) error

	// IncrementViews bumps the view counter by one, atomically in storage.
	IncrementViews(ctx context.Context, id string) error

	// Search returns public posts matching the query in their title, content,
	// or exact tag, newest first.
	Search(ctx context.Context, query string) ([]WithAuthor, error)

	// CountByUser returns how many posts userID owns.
	CountByUser(ctx context.Context, userID string) (int64, error)

	// SumViewsByUser returns the accumulated view count across the user's posts.
	SumViewsByUser(ctx context.Context, userID string) (int64, error)

	// RecentByUser returns the user's most recently updated posts.
	RecentByUser(ctx context.Context, userID string, limit int) ([]Post, error)
}

// EventPublisher pushes post change events toward realtime subscribers.
//
// Declared here (consumer side) so the content domain stays decoupled from
// the transport used to fan events out.
type EventPublisher interface {
	PublishPostChange(ctx context.Context, userID string, event ChangeEvent) error
}
