// Copyright (c) 2026 Folio Works. All rights reserved.

// Package profile manages the public-facing member records of the Folio
// platform: display name, biography, links, avatar, and the authorization
// role. Each profile is the one-to-one companion of an auth identity and
// shares its ID.
package profile

import "time"

// Profile is the public companion record of an identity.
//
// # Identity Relationship
//
// Profile.ID equals the owning identity's ID. The profile carries everything
// a visitor may see plus the Role, which the auth domain snapshots into
// access tokens.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Bio       string     `json:"bio,omitempty"`
	Location  string     `json:"location,omitempty"`
	Website   string     `json:"website,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PublicCard is the trimmed author view embedded into post listings. The
// post store hydrates it directly from the profiles join.
type PublicCard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
