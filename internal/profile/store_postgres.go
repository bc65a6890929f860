// Copyright (c) 2026 Folio Works. All rights reserved.

package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/dberr"
)

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the profile Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindByID retrieves a profile record by its ID.
//
// # Returns
//
// Returns [*Profile] if found, or [apperr.NotFound] if no profile exists.
func (repository *PostgresRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	const query = `
		SELECT id, email, name, bio, location, website, avatarurl, role, lastlogin, createdat, updatedat
		FROM profiles
		WHERE id = $1`

	profile := &Profile{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Email,
		&profile.Name,
		&profile.Bio,
		&profile.Location,
		&profile.Website,
		&profile.AvatarURL,
		&profile.Role,
		&profile.LastLogin,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Profile not found")
		}
		return nil, fmt.Errorf("postgres_profile_repo_find_by_id_failed: %w", err)
	}

	return profile, nil
}

// Create persists a new profile record into the profiles table.
func (repository *PostgresRepository) Create(ctx context.Context, profile *Profile) error {
	const query = `
		INSERT INTO profiles (
			id, email, name, bio, location, website, avatarurl, role, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		profile.ID,
		profile.Email,
		profile.Name,
		profile.Bio,
		profile.Location,
		profile.Website,
		profile.AvatarURL,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		// The primary key doubles as the identity FK, so a double seed for
		// the same identity surfaces as a conflict rather than a 500.
		return dberr.Wrap(err, "Profile")
	}

	return nil
}

// Update persists changes to a profile's mutable presentation fields.
//
// Role is deliberately excluded: role changes go through a dedicated
// administrative path, never through self-service profile edits.
func (repository *PostgresRepository) Update(ctx context.Context, profile *Profile) error {
	const query = `
		UPDATE profiles
		SET name = $2, bio = $3, location = $4, website = $5, updatedat = $6
		WHERE id = $1`

	profile.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(ctx, query,
		profile.ID,
		profile.Name,
		profile.Bio,
		profile.Location,
		profile.Website,
		profile.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_profile_repo_update_failed: %w", err)
	}

	return nil
}

// UpdateAvatar replaces only the avatar URL for a profile.
func (repository *PostgresRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	const query = `
		UPDATE profiles
		SET avatarurl = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, id, avatarURL, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_profile_repo_update_avatar_failed: %w", err)
	}

	return nil
}

// TouchLastLogin stamps last_login with NOW() for the given profile.
func (repository *PostgresRepository) TouchLastLogin(ctx context.Context, id string) error {
	const query = "UPDATE profiles SET lastlogin = NOW() WHERE id = $1"
	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres_profile_repo_touch_last_login_failed: %w", err)
	}
	return nil
}
