// Copyright (c) 2026 Folio Works. All rights reserved.

package profile_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/profile"
	"github.com/folioworks/folio/pkg/pointer"
)

type memRepo struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile
}

func newMemRepo() *memRepo {
	return &memRepo{profiles: map[string]*profile.Profile{}}
}

func (r *memRepo) FindByID(_ context.Context, id string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, apperr.NotFound("Profile not found")
}

func (r *memRepo) Create(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	clone := *p
	r.profiles[p.ID] = &clone
	return nil
}

func (r *memRepo) Update(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.profiles[p.ID]
	if !ok {
		return apperr.NotFound("Profile not found")
	}
	stored.Name = p.Name
	stored.Bio = p.Bio
	stored.Location = p.Location
	stored.Website = p.Website
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memRepo) UpdateAvatar(_ context.Context, id, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		p.AvatarURL = avatarURL
	}
	return nil
}

func (r *memRepo) TouchLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		now := time.Now()
		p.LastLogin = &now
	}
	return nil
}

func newTestService() (*profile.Service, *memRepo) {
	repo := newMemRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return profile.NewService(repo, logger), repo
}

/*
TestService_CreateDefault verifies profile seeding: the record shares the
identity's ID, carries the default role, and an empty name falls back to the
email local part.
*/
func TestService_CreateDefault(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	t.Run("with_name", func(t *testing.T) {
		require.NoError(t, service.CreateDefault(ctx, "id-1", "ada@example.com", "Ada"))

		record, err := service.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "Ada", record.Name)
		assert.Equal(t, string(auth.UserRoleUser), record.Role)
	})

	t.Run("name_falls_back_to_email_local_part", func(t *testing.T) {
		require.NoError(t, service.CreateDefault(ctx, "id-2", "grace@example.com", "  "))

		record, err := service.Get(ctx, "id-2")
		require.NoError(t, err)
		assert.Equal(t, "grace", record.Name)
	})
}

/*
TestService_Update verifies partial edits: provided fields are overwritten,
absent (nil) fields are preserved, and the result reflects persisted state.
*/
func TestService_Update(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, service.CreateDefault(ctx, "id-1", "ada@example.com", "Ada"))
	_, err := service.Update(ctx, "id-1", profile.UpdateInput{
		Bio:      pointer.To("Engineer and writer."),
		Location: pointer.To("London"),
	})
	require.NoError(t, err)

	updated, err := service.Update(ctx, "id-1", profile.UpdateInput{
		Bio: pointer.To("Engineer."),
	})
	require.NoError(t, err)

	assert.Equal(t, "Engineer.", updated.Bio)
	assert.Equal(t, "London", updated.Location, "untouched field must be preserved")
	assert.Equal(t, "Ada", updated.Name)
}

/*
TestService_Update_MissingProfile verifies that editing a nonexistent profile
reports NotFound rather than creating one implicitly.
*/
func TestService_Update_MissingProfile(t *testing.T) {
	service, _ := newTestService()

	_, err := service.Update(context.Background(), "ghost", profile.UpdateInput{Bio: pointer.To("hi")})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestService_ResolveRole verifies role snapshots: a valid stored role is
returned as-is, an unknown role resolves to empty (satisfying no role gate).
*/
func TestService_ResolveRole(t *testing.T) {
	service, repo := newTestService()
	ctx := context.Background()

	require.NoError(t, service.CreateDefault(ctx, "id-1", "ada@example.com", "Ada"))

	role, err := service.ResolveRole(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, auth.UserRoleUser, role)

	repo.mu.Lock()
	repo.profiles["id-1"].Role = "superhero"
	repo.mu.Unlock()

	role, err = service.ResolveRole(ctx, "id-1")
	require.NoError(t, err)
	assert.Empty(t, role)
}

/*
TestService_TouchLastLogin verifies that stamping sets the timestamp.
*/
func TestService_TouchLastLogin(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, service.CreateDefault(ctx, "id-1", "ada@example.com", "Ada"))
	require.NoError(t, service.TouchLastLogin(ctx, "id-1"))

	record, err := service.Get(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, record.LastLogin)
	assert.WithinDuration(t, time.Now(), *record.LastLogin, time.Minute)
}
