// Copyright (c) 2026 Folio Works. All rights reserved.

// Package auth implements the authentication use cases for the Folio platform.
//
// # Architecture
//
// The [Service] here is the single authority over authentication state
// transitions: no other component creates, refreshes, or revokes sessions.
// It orchestrates domain entities and interacts with repositories through
// interfaces; it is technology-agnostic and does not know about HTTP or SQL.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/constants"
	"github.com/folioworks/folio/internal/platform/sec"
	"github.com/folioworks/folio/pkg/uuidv7"
)

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the identity.
	//   - email: The email of the identity.
	//   - role: The profile role embedded as a claim snapshot.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an error if signing fails.
	GenerateAccessToken(userID, email, role string, timeToLive time.Duration) (string, error)
}

// RoleResolver returns the current profile role for a user, embedded into
// freshly issued access tokens.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID string) (UserRole, error)
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed carefully.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	resetTokens       ResetTokenRepository
	tokenProvider     TokenProvider
	profiles          ProfileDirectory
	roles             RoleResolver
	mailer            Mailer
	logger            *slog.Logger
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetTokens ResetTokenRepository,
	tokenProv TokenProvider,
	profiles ProfileDirectory,
	roles RoleResolver,
	mailer Mailer,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		resetTokens:       resetTokens,
		tokenProvider:     tokenProv,
		profiles:          profiles,
		roles:             roles,
		mailer:            mailer,
		logger:            logger,
	}
}

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email    string
	Password string

	// Name seeds the display name of the profile created alongside the identity.
	Name string

	UserAgent string
	IPAddress string
}

// AuthSession represents a successfully established user session.
type AuthSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

// Register creates a backend identity, then its one-to-one profile record,
// and signs the new member in.
//
// # Returns
//   - A pointer to the established [*AuthSession].
//   - Returns [apperr.Conflict] if the email already exists.
//
// # Business Rules
//   - Emails must be unique.
//   - The profile is seeded with default role "user".
//   - Identity creation and profile creation are one logical operation but
//     are NOT atomic: if the profile insert fails after the identity insert
//     succeeded, the error is surfaced and the identity remains. Known gap,
//     kept deliberately; the login path re-checks for a missing profile.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*AuthSession, error) {
	// ── 1. Uniqueness Check ───────────────────────────────────────────────

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err := service.userRepository.FindByEmail(ctx, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Identity Construction ──────────────────────────────────────────

	user := &User{
		ID:           uuidv7.New(), // Time-sortable ID to prevent PG index fragmentation.
		Email:        input.Email,
		PasswordHash: hashedPassword,
		IsVerified:   false,
	}

	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// ── 4. Profile Seeding ────────────────────────────────────────────────

	// No rollback of the identity on failure here (see Business Rules above).
	if err := service.profiles.CreateDefault(ctx, user.ID, input.Email, input.Name); err != nil {
		return nil, fmt.Errorf("auth_service_profile_seed_failed: %w", err)
	}

	// ── 5. Session Establishment ──────────────────────────────────────────

	return service.establishSession(ctx, user, input.UserAgent, input.IPAddress)
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// Login validates user credentials and issues security tokens.
//
// # Returns
//   - A pointer to [AuthSession] containing the AccessToken.
//   - Returns [apperr.Unauthorized] if credentials do not match. Credential
//     failure is a normal result, never a panic.
//
// # Flow
//  1. Lookup identity by email.
//  2. Verify password hash using Bcrypt.
//  3. Stamp the profile's last_login (best effort).
//  4. Issue access + refresh token pair.
func (service *Service) Login(ctx context.Context, input LoginInput) (*AuthSession, error) {
	// ── 1. Fetch Identity ─────────────────────────────────────────────────

	// Return generic unauthorized error to prevent account enumeration attacks.
	user, err := service.userRepository.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	// Bcrypt comparison is constant-time, mitigating timing attacks.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	// ── 3. Login Stamp ────────────────────────────────────────────────────

	// Best effort: a failed stamp must not block an otherwise valid login.
	if err := service.profiles.TouchLastLogin(ctx, user.ID); err != nil {
		service.logger.Warn("auth_last_login_stamp_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	// ── 4. Token Issuance ─────────────────────────────────────────────────

	return service.establishSession(ctx, user, input.UserAgent, input.IPAddress)
}

// Logout revokes the session identified by the refresh token.
//
// # Decision
//
// Logout NEVER fails from the caller's perspective: a missing, expired, or
// already-revoked session is treated as a successful logout (idempotent), and
// a storage failure during revocation is logged but still reported as
// success. A client must never be left "stuck" authenticated after asking to
// leave.
func (service *Service) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		// Session already gone or invalid: logout is complete.
		return nil
	}

	if err := service.sessionRepository.Revoke(ctx, session.ID); err != nil {
		service.logger.Error("auth_logout_revoke_failed",
			slog.String("session_id", session.ID),
			slog.Any("error", err),
		)
	}

	return nil
}

// RefreshSession implements the Refresh Token Rotation mechanism.
// It verifies the existing refresh token, revokes it to prevent reuse
// (preventing replay attacks), and issues a fresh pair of Access and
// Refresh tokens.
func (service *Service) RefreshSession(ctx context.Context, refreshToken, userAgent, ipAddress string) (*AuthSession, error) {
	// ── 1. Find Existing Session ──────────────────────────────────────────

	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		// The token is either expired, already revoked, or completely invalid.
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// ── 2. Rotation (Revoke Old Session) ──────────────────────────────────

	if err := service.sessionRepository.Revoke(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}

	// ── 3. Find User ──────────────────────────────────────────────────────

	user, err := service.userRepository.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	// ── 4. Issue New Tokens ───────────────────────────────────────────────

	return service.establishSession(ctx, user, userAgent, ipAddress)
}

// ResetPassword issues a one-time, short-lived reset token for the email.
//
// It deliberately reports success even when the email is unknown, so the
// endpoint cannot be used to probe which addresses are registered.
func (service *Service) ResetPassword(ctx context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		return nil
	}

	token, err := sec.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	if err := service.resetTokens.Set(ctx, token, user.ID, constants.ResetTokenTTL); err != nil {
		return fmt.Errorf("auth_service_reset_token_store_failed: %w", err)
	}

	if err := service.mailer.SendPasswordReset(ctx, email, token); err != nil {
		return fmt.Errorf("auth_service_reset_mail_failed: %w", err)
	}

	return nil
}

// ConfirmPasswordReset exchanges a valid reset token for a new password.
//
// All existing sessions are revoked afterwards: a password reset usually
// means the old credential may be compromised. The account is also marked
// email-verified, since the token arrived through that mailbox.
func (service *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	userID, err := service.resetTokens.Get(ctx, token)
	if err != nil {
		return apperr.Unauthorized("Reset token is invalid or expired")
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	// Completing the reset required reading the mailbox, which is exactly
	// what email verification asserts. Best effort.
	if err := service.userRepository.MarkVerified(ctx, userID); err != nil {
		service.logger.Warn("auth_mark_verified_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	// One-time use: remove the token before revoking sessions.
	if err := service.resetTokens.Delete(ctx, token); err != nil {
		service.logger.Warn("auth_reset_token_delete_failed", slog.Any("error", err))
	}

	if err := service.sessionRepository.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_reset_revoke_failed: %w", err)
	}

	return nil
}

// UpdatePassword replaces the password for the authenticated user.
//
// Like [ConfirmPasswordReset] it revokes every other active session.
func (service *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("auth_service_password_update_failed: %w", err)
	}

	if err := service.sessionRepository.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_password_revoke_failed: %w", err)
	}

	return nil
}

// establishSession issues the access/refresh token pair for a verified identity.
//
// The role claim embedded in the access token is a snapshot of the profile's
// current role; an unresolvable role (profile missing) is embedded as empty
// and satisfies no role gate.
func (service *Service) establishSession(ctx context.Context, user *User, userAgent, ipAddress string) (*AuthSession, error) {
	// ── 1. Resolve Role Snapshot ──────────────────────────────────────────

	role, err := service.roles.ResolveRole(ctx, user.ID)
	if err != nil {
		service.logger.Warn("auth_role_resolution_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		role = ""
	}

	// ── 2. Access Token ───────────────────────────────────────────────────

	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(role), constants.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// ── 3. Refresh Token ──────────────────────────────────────────────────

	refreshToken, err := sec.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(constants.RefreshTokenTTL)
	session := &Session{
		ID:        uuidv7.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &AuthSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}
