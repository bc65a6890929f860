// Copyright (c) 2026 Folio Works. All rights reserved.

package profile

import "context"

// Repository defines the data access contract for member profiles.
type Repository interface {
	// FindByID returns the profile whose ID equals the identity's ID.
	//
	// Returns [apperr.NotFound] if no profile exists.
	FindByID(ctx context.Context, id string) (*Profile, error)

	// Create persists a brand-new profile row.
	Create(ctx context.Context, profile *Profile) error

	// Update overwrites the mutable presentation fields of the profile.
	Update(ctx context.Context, profile *Profile) error

	// UpdateAvatar replaces only the avatar URL.
	UpdateAvatar(ctx context.Context, id, avatarURL string) error

	// TouchLastLogin stamps last_login with the current time.
	TouchLastLogin(ctx context.Context, id string) error
}
