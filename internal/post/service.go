// Copyright (c) 2026 Folio Works. All rights reserved.

package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/pkg/pagination"
	"github.com/folioworks/folio/pkg/pointer"
	"github.com/folioworks/folio/pkg/slice"
	"github.com/folioworks/folio/pkg/uuidv7"
)

// recentDashboardPosts is how many recent posts the dashboard shows.
const recentDashboardPosts = 5

// Service implements the content use cases.
type Service struct {
	repository Repository
	events     EventPublisher
	logger     *slog.Logger
}

// NewService constructs a new post [Service].
func NewService(repository Repository, events EventPublisher, logger *slog.Logger) *Service {
	return &Service{repository: repository, events: events, logger: logger}
}

// CreateInput holds the data for authoring a new post.
type CreateInput struct {
	Title    string
	Content  string
	Tags     []string
	IsPublic *bool // nil defaults to public
}

// Create authors a new post owned by userID.
//
// # Business Rules
//   - Posts default to public when no visibility is provided.
//   - Tags are stored deduplicated, preserving first-seen order.
//   - The view counter always starts at zero.
func (service *Service) Create(ctx context.Context, userID string, input CreateInput) (*Post, error) {
	record := &Post{
		ID:       uuidv7.New(),
		UserID:   userID,
		Title:    strings.TrimSpace(input.Title),
		Content:  input.Content,
		Tags:     slice.Unique(input.Tags),
		IsPublic: pointer.Fallback(input.IsPublic, true),
		Views:    0,
	}

	if err := service.repository.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("post_service_create_failed: %w", err)
	}

	service.publish(ctx, record, ChangeCreated)

	return record, nil
}

// Get returns a single post and bumps its view counter.
//
// # Visibility
//
// Public posts are readable by anyone. Private posts are readable only by
// their owner or an admin; everyone else gets NotFound (not Forbidden, so
// the existence of private posts is not disclosed).
//
// # View Counter
//
// Every successful read counts a view, including repeat reads by the same
// visitor. The returned record carries the pre-increment count; the bump
// becomes visible on the next read.
func (service *Service) Get(ctx context.Context, id string, viewer *auth.UserRole, viewerID string) (*WithAuthor, error) {
	record, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !record.IsPublic && !canManage(record.UserID, viewerID, viewer) {
		return nil, apperr.NotFound("Post not found")
	}

	// Best effort: a lost view count never fails the read.
	if err := service.repository.IncrementViews(ctx, id); err != nil {
		service.logger.Warn("post_view_increment_failed",
			slog.String("post_id", id),
			slog.Any("error", err),
		)
	}

	return record, nil
}

// ListPublic returns one page of public posts with pagination metadata. Tags,
// when provided, narrow the feed to posts carrying at least one of them.
func (service *Service) ListPublic(ctx context.Context, params pagination.Params, tags []string) ([]WithAuthor, pagination.Meta, error) {
	posts, total, err := service.repository.ListPublic(ctx, params, slice.Unique(tags))
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("post_service_list_public_failed: %w", err)
	}

	if posts == nil {
		posts = []WithAuthor{}
	}

	return posts, pagination.NewMeta(params.Page, params.Limit, int(total)), nil
}

// ListOwn returns every post the caller owns, private ones included.
func (service *Service) ListOwn(ctx context.Context, userID string) ([]Post, error) {
	posts, err := service.repository.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("post_service_list_own_failed: %w", err)
	}

	if posts == nil {
		posts = []Post{}
	}

	return posts, nil
}

// UpdateInput holds the optional fields for a partial post edit.
// Nil pointers mean "leave unchanged".
type UpdateInput struct {
	Title    *string
	Content  *string
	Tags     []string // nil means unchanged, empty slice clears
	IsPublic *bool
}

// Update applies a partial edit to a post.
//
// # Authorization
//
// Only the owner or an admin may edit. Others get NotFound for private
// posts and Forbidden for public ones.
func (service *Service) Update(ctx context.Context, id string, input UpdateInput, viewer *auth.UserRole, viewerID string) (*Post, error) {
	existing, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorizeManage(&existing.Post, viewerID, viewer); err != nil {
		return nil, err
	}

	record := existing.Post
	record.Title = strings.TrimSpace(pointer.Fallback(input.Title, record.Title))
	record.Content = pointer.Fallback(input.Content, record.Content)
	if input.Tags != nil {
		record.Tags = slice.Unique(input.Tags)
	}
	record.IsPublic = pointer.Fallback(input.IsPublic, record.IsPublic)

	if err := service.repository.Update(ctx, &record); err != nil {
		return nil, fmt.Errorf("post_service_update_failed: %w", err)
	}

	service.publish(ctx, &record, ChangeUpdated)

	return &record, nil
}

// Delete permanently removes a post.
//
// Same authorization rules as [Service.Update].
func (service *Service) Delete(ctx context.Context, id string, viewer *auth.UserRole, viewerID string) error {
	existing, err := service.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := authorizeManage(&existing.Post, viewerID, viewer); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, id); err != nil {
		return fmt.Errorf("post_service_delete_failed: %w", err)
	}

	service.publish(ctx, &existing.Post, ChangeDeleted)

	return nil
}

// Search returns public posts matching the query.
//
// Matching is case-insensitive over title and content, plus exact membership
// in the tags array. A blank query returns an empty result, never the whole
// corpus.
func (service *Service) Search(ctx context.Context, query string) ([]WithAuthor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []WithAuthor{}, nil
	}

	posts, err := service.repository.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("post_service_search_failed: %w", err)
	}

	if posts == nil {
		posts = []WithAuthor{}
	}

	return posts, nil
}

// GetDashboard aggregates the caller's content statistics.
//
// # Decision
//
// The three aggregates (post count, accumulated views, recent posts) are
// fetched concurrently and the result is all-or-nothing: one failed fetch
// fails the dashboard rather than serving partially wrong numbers.
func (service *Service) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	dashboard := &Dashboard{}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		count, err := service.repository.CountByUser(groupCtx, userID)
		if err != nil {
			return err
		}
		dashboard.PostsCount = count
		return nil
	})

	group.Go(func() error {
		views, err := service.repository.SumViewsByUser(groupCtx, userID)
		if err != nil {
			return err
		}
		dashboard.TotalViews = views
		return nil
	})

	group.Go(func() error {
		recent, err := service.repository.RecentByUser(groupCtx, userID, recentDashboardPosts)
		if err != nil {
			return err
		}
		if recent == nil {
			recent = []Post{}
		}
		dashboard.RecentPosts = recent
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("post_service_dashboard_failed: %w", err)
	}

	return dashboard, nil
}

// publish fans a change event out to realtime subscribers, best effort.
func (service *Service) publish(ctx context.Context, record *Post, change ChangeType) {
	if service.events == nil {
		return
	}

	event := ChangeEvent{Type: change, Post: record}
	if err := service.events.PublishPostChange(ctx, record.UserID, event); err != nil {
		service.logger.Warn("post_event_publish_failed",
			slog.String("post_id", record.ID),
			slog.String("change", string(change)),
			slog.Any("error", err),
		)
	}
}

// canManage reports whether viewerID (with the given role) owns or
// administers the post owned by ownerID.
func canManage(ownerID, viewerID string, role *auth.UserRole) bool {
	if viewerID == "" {
		return false
	}
	if ownerID == viewerID {
		return true
	}
	return role != nil && *role == auth.UserRoleAdmin
}

// authorizeManage maps a failed manage check to the correct domain error.
func authorizeManage(record *Post, viewerID string, role *auth.UserRole) error {
	if canManage(record.UserID, viewerID, role) {
		return nil
	}
	if !record.IsPublic {
		// Hide the existence of other people's private posts.
		return apperr.NotFound("Post not found")
	}
	return apperr.Forbidden("You do not own this post")
}
