// Copyright (c) 2026 Folio Works. All rights reserved.

package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/pkg/pagination"
)

// PostgresRepository implements the Repository interface using pgx.
//
// # Performance Characteristics
//
//   - Window Functions: public listings compute the total result count with
//     COUNT(*) OVER() instead of a second round-trip.
//   - Author hydration: the author card is joined directly from profiles, so
//     listings never pay an N+1 lookup per post.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the post Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists a new post record into the posts table.
func (repository *PostgresRepository) Create(ctx context.Context, post *Post) error {
	const query = `
		INSERT INTO posts (
			id, userid, title, content, tags, ispublic, views, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}

	_, err := repository.pool.Exec(ctx, query,
		post.ID,
		post.UserID,
		post.Title,
		post.Content,
		post.Tags,
		post.IsPublic,
		post.Views,
		post.CreatedAt,
		post.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_post_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID retrieves a post with its author card.
//
// # Returns
//
// Returns [*WithAuthor] if found, or [apperr.NotFound] if no post exists.
func (repository *PostgresRepository) FindByID(ctx context.Context, id string) (*WithAuthor, error) {
	const query = `
		SELECT p.id, p.userid, p.title, p.content, p.tags, p.ispublic, p.views,
		       p.createdat, p.updatedat,
		       pr.id, pr.name, pr.avatarurl
		FROM posts p
		JOIN profiles pr ON pr.id = p.userid
		WHERE p.id = $1`

	record := &WithAuthor{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.UserID,
		&record.Title,
		&record.Content,
		&record.Tags,
		&record.IsPublic,
		&record.Views,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.Author.ID,
		&record.Author.Name,
		&record.Author.AvatarURL,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Post not found")
		}
		return nil, fmt.Errorf("postgres_post_repo_find_by_id_failed: %w", err)
	}

	return record, nil
}

// ListPublic retrieves one page of public posts, newest first. A non-empty
// tags slice narrows the feed to posts carrying at least one of the tags.
//
// # Returns
//   - The page of posts with author cards.
//   - The total number of matching posts (window function, no second query).
func (repository *PostgresRepository) ListPublic(ctx context.Context, params pagination.Params, tags []string) ([]WithAuthor, int64, error) {
	const query = `
		SELECT p.id, p.userid, p.title, p.content, p.tags, p.ispublic, p.views,
		       p.createdat, p.updatedat,
		       pr.id, pr.name, pr.avatarurl,
		       COUNT(*) OVER() AS total_count
		FROM posts p
		JOIN profiles pr ON pr.id = p.userid
		WHERE p.ispublic = TRUE
		  AND (cardinality($3::text[]) = 0 OR p.tags && $3::text[])
		ORDER BY p.createdat DESC, p.id DESC
		LIMIT $1 OFFSET $2`

	if tags == nil {
		tags = []string{}
	}

	rows, err := repository.pool.Query(ctx, query, params.Limit, params.Offset(), tags)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_post_repo_list_public_failed: %w", err)
	}
	defer rows.Close()

	var posts []WithAuthor
	var totalCount int64

	for rows.Next() {
		record := WithAuthor{}
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Title,
			&record.Content,
			&record.Tags,
			&record.IsPublic,
			&record.Views,
			&record.CreatedAt,
			&record.UpdatedAt,
			&record.Author.ID,
			&record.Author.Name,
			&record.Author.AvatarURL,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_post_repo_list_public_scan_failed: %w", err)
		}
		posts = append(posts, record)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_post_repo_list_public_rows_failed: %w", err)
	}

	// A page past the end scans zero rows, so the window-function total was
	// never read. The caller still needs the true count for its page math.
	if len(posts) == 0 && params.Offset() > 0 {
		const countQuery = `
			SELECT COUNT(*)
			FROM posts p
			WHERE p.ispublic = TRUE
			  AND (cardinality($1::text[]) = 0 OR p.tags && $1::text[])`

		if err := repository.pool.QueryRow(ctx, countQuery, tags).Scan(&totalCount); err != nil {
			return nil, 0, fmt.Errorf("postgres_post_repo_list_public_count_failed: %w", err)
		}
	}

	return posts, totalCount, nil
}

// ListByUser retrieves every post owned by userID, newest first.
func (repository *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Post, error) {
	const query = `
		SELECT id, userid, title, content, tags, ispublic, views, createdat, updatedat
		FROM posts
		WHERE userid = $1
		ORDER BY createdat DESC, id DESC`

	rows, err := repository.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_post_repo_list_by_user_failed: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Update persists changes to a post's mutable fields.
func (repository *PostgresRepository) Update(ctx context.Context, post *Post) error {
	const query = `
		UPDATE posts
		SET title = $2, content = $3, tags = $4, ispublic = $5, updatedat = $6
		WHERE id = $1`

	post.UpdatedAt = time.Now()
	if post.Tags == nil {
		post.Tags = []string{}
	}

	_, err := repository.pool.Exec(ctx, query,
		post.ID,
		post.Title,
		post.Content,
		post.Tags,
		post.IsPublic,
		post.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_post_repo_update_failed: %w", err)
	}

	return nil
}

// Delete permanently removes a post.
func (repository *PostgresRepository) Delete(ctx context.Context, id string) error {
	const query = "DELETE FROM posts WHERE id = $1"
	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres_post_repo_delete_failed: %w", err)
	}
	return nil
}

// IncrementViews bumps the view counter by one.
//
// The increment happens entirely inside the database, so concurrent reads of
// the same post never lose counts to a read-modify-write race.
func (repository *PostgresRepository) IncrementViews(ctx context.Context, id string) error {
	const query = "UPDATE posts SET views = views + 1 WHERE id = $1"
	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres_post_repo_increment_views_failed: %w", err)
	}
	return nil
}

// Search retrieves public posts whose title or content contains the query
// (case-insensitive) or whose tags include it exactly, newest first.
func (repository *PostgresRepository) Search(ctx context.Context, query string) ([]WithAuthor, error) {
	const sql = `
		SELECT p.id, p.userid, p.title, p.content, p.tags, p.ispublic, p.views,
		       p.createdat, p.updatedat,
		       pr.id, pr.name, pr.avatarurl
		FROM posts p
		JOIN profiles pr ON pr.id = p.userid
		WHERE p.ispublic = TRUE
		  AND (p.title ILIKE $1 OR p.content ILIKE $1 OR p.tags @> ARRAY[$2]::text[])
		ORDER BY p.createdat DESC, p.id DESC`

	rows, err := repository.pool.Query(ctx, sql, "%"+query+"%", query)
	if err != nil {
		return nil, fmt.Errorf("postgres_post_repo_search_failed: %w", err)
	}
	defer rows.Close()

	var posts []WithAuthor
	for rows.Next() {
		record := WithAuthor{}
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Title,
			&record.Content,
			&record.Tags,
			&record.IsPublic,
			&record.Views,
			&record.CreatedAt,
			&record.UpdatedAt,
			&record.Author.ID,
			&record.Author.Name,
			&record.Author.AvatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres_post_repo_search_scan_failed: %w", err)
		}
		posts = append(posts, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_post_repo_search_rows_failed: %w", err)
	}

	return posts, nil
}

// CountByUser returns the number of posts owned by userID.
func (repository *PostgresRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	const query = "SELECT COUNT(*) FROM posts WHERE userid = $1"

	var count int64
	if err := repository.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_post_repo_count_by_user_failed: %w", err)
	}

	return count, nil
}

// SumViewsByUser returns the accumulated view count across the user's posts.
func (repository *PostgresRepository) SumViewsByUser(ctx context.Context, userID string) (int64, error) {
	const query = "SELECT COALESCE(SUM(views), 0) FROM posts WHERE userid = $1"

	var total int64
	if err := repository.pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_post_repo_sum_views_failed: %w", err)
	}

	return total, nil
}

// RecentByUser returns the user's most recently updated posts.
func (repository *PostgresRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]Post, error) {
	const query = `
		SELECT id, userid, title, content, tags, ispublic, views, createdat, updatedat
		FROM posts
		WHERE userid = $1
		ORDER BY updatedat DESC, id DESC
		LIMIT $2`

	rows, err := repository.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_post_repo_recent_by_user_failed: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// scanPosts drains a plain post result set.
func scanPosts(rows pgx.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		record := Post{}
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Title,
			&record.Content,
			&record.Tags,
			&record.IsPublic,
			&record.Views,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres_post_repo_scan_failed: %w", err)
		}
		posts = append(posts, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_post_repo_rows_failed: %w", err)
	}

	return posts, nil
}
