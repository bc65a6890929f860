// Copyright (c) 2026 Folio Works. All rights reserved.

package auth

import (
	"context"
	"time"
)

// UserRepository defines the data access contract for user identities.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently.
//
// # Implementations
//
// The canonical implementation for Folio is PostgreSQL.
type UserRepository interface {
	// FindByID returns the identity with the given ID.
	//
	// Returns [apperr.NotFound] if the identity does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the identity with the given email.
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create persists a brand-new identity to the storage.
	//
	// Returns a wrapped error if the email unique constraint fails.
	Create(ctx context.Context, user *User) error

	// UpdatePassword replaces only the user's password hash.
	// This is separate from profile updates to prevent accidental overwrites.
	UpdatePassword(ctx context.Context, userID, newHash string) error

	// MarkVerified flips the email-verified flag for the identity.
	MarkVerified(ctx context.Context, userID string) error
}

// SessionRepository defines the data access contract for refresh-token sessions.
//
// # Domain Ownership
//
// This is kept alongside [UserRepository] because sessions are owned entirely
// by the auth domain, despite serving authentication security.
type SessionRepository interface {
	// Create persists a new tracking session for an authenticated login.
	Create(ctx context.Context, session *Session) error

	// FindByTokenHash returns the active session matching the given token hash.
	//
	// Returns [apperr.NotFound] if the session is invalid, expired, or revoked.
	FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Revoke marks a specific session as permanently invalidated.
	// Usually triggered during explicit user logout from a specific device.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeAll revokes every active session belonging to the userID.
	// Crucial for security event responses (e.g., password change or account compromise).
	RevokeAll(ctx context.Context, userID string) error

	// DeleteExpired physically removes sessions whose ExpiresAt is in the past.
	// Intended to be called by a periodic background cleanup worker to reclaim storage.
	DeleteExpired(ctx context.Context) error
}

// ResetTokenRepository defines the contract for storing volatile password reset tokens.
type ResetTokenRepository interface {
	// Set stores a reset token associated with a userID for a limited duration.
	Set(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Get retrieves the userID associated with a given reset token.
	Get(ctx context.Context, token string) (string, error)

	// Delete removes a reset token after successful use.
	Delete(ctx context.Context, token string) error
}

// StateRepository defines the contract for one-time OAuth state nonces.
//
// A state is written at OAuthBegin and must still be present (and is then
// consumed) at OAuthCallback, bounding the redirect round-trip window.
type StateRepository interface {
	// Set stores the state with the provider name as its value.
	Set(ctx context.Context, state string, provider string, ttl time.Duration) error

	// Consume retrieves and deletes the state in one step.
	//
	// Returns [apperr.NotFound] if the state is absent or expired.
	Consume(ctx context.Context, state string) (string, error)
}

// ProfileDirectory is the narrow view of the profile domain the auth service
// needs: seeding the one-to-one profile at sign-up and stamping logins.
//
// # Why an interface?
//
// Declaring it here (consumer side) avoids a package cycle between auth and
// profile and lets tests inject an in-memory fake.
type ProfileDirectory interface {
	// CreateDefault creates the profile row for a fresh identity with the
	// default "user" role and the seed attributes gathered at registration.
	CreateDefault(ctx context.Context, userID, email, name string) error

	// TouchLastLogin stamps the profile's last_login timestamp.
	TouchLastLogin(ctx context.Context, userID string) error
}

// Mailer delivers account emails (password reset). The default wiring logs
// the message instead of sending it when no SMTP provider is configured.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
