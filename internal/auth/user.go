// Copyright (c) 2026 Folio Works. All rights reserved.

// Package auth owns authentication state transitions for the Folio platform.
//
// # Architecture
//
// Entities in this file represent the identity "Truth" of the system. They
// have no dependencies on outer layers (databases, APIs, frameworks), which
// keeps the core logic highly testable and resilient to technology changes.
package auth

import (
	"time"
)

// UserRole represents the authorization level granted to an account.
//
// # Usage
//
// Used by [middleware.RequireRole] to enforce access control on API endpoints.
// Route gates declare an allowed set; membership is checked, not hierarchy.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin" // Unrestricted system access.
	UserRoleUser  UserRole = "user"  // Default role for registered members.
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

// User represents a registered identity on the Folio platform.
//
// # Rules
//   - Email is unique and validated.
//   - PasswordHash is generated via Bcrypt exclusively by the auth [Service].
//     It is empty for OAuth-only identities.
//   - IsVerified ensures the user has confirmed their email address.
//
// User carries identity only; the user-editable attributes (display name,
// bio, links, role) live on the one-to-one profile record created at sign-up.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session represents an active refresh-token session.
//
// # Security Concept
//
// Access Tokens (JWT) are stateless and cannot be revoked easily before they
// expire. To mitigate this, Folio uses short-lived JWTs paired with
// long-lived Sessions stored in the database. When the JWT expires, the
// client uses the Session (Refresh Token) to issue a new JWT. Revoking a
// Session logs the user out globally.
//
// The invariant "a Session exists iff a user identity exists" is enforced by
// a foreign key: sessions reference users and are removed with them.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}
