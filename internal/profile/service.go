// Copyright (c) 2026 Folio Works. All rights reserved.

package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/pkg/pointer"
)

// Service implements member profile use cases.
//
// It also satisfies the narrow collaboration contracts the auth domain
// declares ([auth.ProfileDirectory] and [auth.RoleResolver]), so the auth
// service can seed profiles and snapshot roles without importing this
// package's internals.
type Service struct {
	repository Repository
	logger     *slog.Logger
}

// NewService constructs a new profile [Service].
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{repository: repository, logger: logger}
}

// Get returns the profile for the given ID.
//
// # Returns
//   - Returns [apperr.NotFound] if the profile does not exist.
func (service *Service) Get(ctx context.Context, id string) (*Profile, error) {
	return service.repository.FindByID(ctx, id)
}

// UpdateInput holds the optional presentation fields for a partial update.
// Nil pointers mean "leave unchanged".
type UpdateInput struct {
	Name     *string
	Bio      *string
	Location *string
	Website  *string
}

// Update applies a partial edit to the caller's own profile.
//
// # Decision
//
// The returned profile is re-read from storage after the write, not merged
// optimistically in memory, so the caller always sees exactly what was
// persisted (including trigger-adjusted timestamps).
func (service *Service) Update(ctx context.Context, userID string, input UpdateInput) (*Profile, error) {
	// ── 1. Load Current State ─────────────────────────────────────────────

	current, err := service.repository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// ── 2. Apply Partial Fields ───────────────────────────────────────────

	current.Name = pointer.Fallback(input.Name, current.Name)
	current.Bio = pointer.Fallback(input.Bio, current.Bio)
	current.Location = pointer.Fallback(input.Location, current.Location)
	current.Website = pointer.Fallback(input.Website, current.Website)

	if err := service.repository.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("profile_service_update_failed: %w", err)
	}

	// ── 3. Re-Read Persisted State ────────────────────────────────────────

	return service.repository.FindByID(ctx, userID)
}

// SetAvatar replaces the avatar URL after a successful media upload and
// returns the refreshed profile.
func (service *Service) SetAvatar(ctx context.Context, userID, avatarURL string) (*Profile, error) {
	if err := service.repository.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		return nil, fmt.Errorf("profile_service_set_avatar_failed: %w", err)
	}
	return service.repository.FindByID(ctx, userID)
}

// CreateDefault seeds the one-to-one profile for a fresh identity.
//
// # Business Rules
//   - The profile shares the identity's ID.
//   - The default role is "user".
//   - An empty display name falls back to the email local part.
func (service *Service) CreateDefault(ctx context.Context, userID, email, name string) error {
	if strings.TrimSpace(name) == "" {
		name = email
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		}
	}

	record := &Profile{
		ID:    userID,
		Email: email,
		Name:  name,
		Role:  string(auth.UserRoleUser),
	}

	if err := service.repository.Create(ctx, record); err != nil {
		return fmt.Errorf("profile_service_seed_failed: %w", err)
	}

	return nil
}

// TouchLastLogin stamps the profile's last_login timestamp.
func (service *Service) TouchLastLogin(ctx context.Context, userID string) error {
	return service.repository.TouchLastLogin(ctx, userID)
}

// ResolveRole returns the member's current authorization role for embedding
// into freshly issued access tokens.
func (service *Service) ResolveRole(ctx context.Context, userID string) (auth.UserRole, error) {
	record, err := service.repository.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	role := auth.UserRole(record.Role)
	if !role.Valid() {
		service.logger.Warn("profile_unknown_role",
			slog.String("user_id", userID),
			slog.String("role", record.Role),
		)
		return "", nil
	}

	return role, nil
}
