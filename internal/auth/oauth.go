// Copyright (c) 2026 Folio Works. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/constants"
	"github.com/folioworks/folio/internal/platform/sec"
	"github.com/folioworks/folio/pkg/uuidv7"
)

// ProviderGoogle is the only federated identity provider currently supported.
const ProviderGoogle = "google"

const googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthService implements the federated sign-in flow (authorization code
// grant with a server-held state nonce).
//
// # Flow
//
//  1. Begin: generate a random state, persist it in Redis with a short TTL,
//     and hand the client the provider's consent URL.
//  2. Callback: consume the state (one-time), exchange the code for a
//     provider token, fetch the provider profile, find-or-create the local
//     identity, and establish a first-party session.
//
// Provider tokens are used once for the profile fetch and never stored.
type OAuthService struct {
	config         *oauth2.Config
	states         StateRepository
	userRepository UserRepository
	profiles       ProfileDirectory
	sessions       *Service
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewOAuthService constructs the Google OAuth service.
//
// # Parameters
//   - clientID, clientSecret: Google OAuth application credentials.
//   - redirectURL: The absolute callback URL registered with the provider.
func NewOAuthService(
	clientID, clientSecret, redirectURL string,
	states StateRepository,
	userRepo UserRepository,
	profiles ProfileDirectory,
	sessions *Service,
	logger *slog.Logger,
) *OAuthService {
	return &OAuthService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		states:         states,
		userRepository: userRepo,
		profiles:       profiles,
		sessions:       sessions,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		logger:         logger,
	}
}

// Enabled reports whether provider credentials are configured. The HTTP
// layer returns 404 for the OAuth routes when disabled.
func (service *OAuthService) Enabled() bool {
	return service.config.ClientID != "" && service.config.ClientSecret != ""
}

// Begin starts the federated sign-in round-trip.
//
// # Returns
//   - The provider consent URL the client must redirect to.
func (service *OAuthService) Begin(ctx context.Context) (string, error) {
	// ── 1. State Nonce ────────────────────────────────────────────────────

	state, err := sec.GenerateSecureToken(24)
	if err != nil {
		return "", fmt.Errorf("oauth_service_state_generation_failed: %w", err)
	}

	if err := service.states.Set(ctx, state, ProviderGoogle, constants.OAuthStateTTL); err != nil {
		return "", fmt.Errorf("oauth_service_state_store_failed: %w", err)
	}

	// ── 2. Consent URL ────────────────────────────────────────────────────

	return service.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// googleUserInfo is the subset of the Google userinfo payload consumed here.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Callback finishes the federated sign-in round-trip.
//
// # Returns
//   - A first-party [*AuthSession] for the linked identity.
//   - Returns [apperr.Unauthorized] for a bad state or a rejected code.
//
// # Business Rules
//   - The state nonce is single-use.
//   - Accounts are linked by email: an existing identity with the provider's
//     email is signed in, otherwise a new identity plus profile is created.
//   - Provider-created identities get an unguessable random password hash so
//     the password login path stays closed until the user sets one.
func (service *OAuthService) Callback(ctx context.Context, state, code, userAgent, ipAddress string) (*AuthSession, error) {
	// ── 1. State Verification ─────────────────────────────────────────────

	provider, err := service.states.Consume(ctx, state)
	if err != nil {
		return nil, apperr.Unauthorized("OAuth state is invalid or expired")
	}
	if provider != ProviderGoogle {
		return nil, apperr.Unauthorized("OAuth state was issued for another provider")
	}

	// ── 2. Code Exchange ──────────────────────────────────────────────────

	token, err := service.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Unauthorized("OAuth code exchange was rejected")
	}

	// ── 3. Provider Profile ───────────────────────────────────────────────

	info, err := service.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("oauth_service_userinfo_failed: %w", err)
	}
	if info.Email == "" {
		return nil, apperr.Unauthorized("Provider did not disclose an email address")
	}

	// ── 4. Find-Or-Create Identity ────────────────────────────────────────

	user, err := service.userRepository.FindByEmail(ctx, info.Email)
	if err != nil {
		user, err = service.provisionIdentity(ctx, info)
		if err != nil {
			return nil, err
		}
	}

	// ── 5. Session Establishment ──────────────────────────────────────────

	if err := service.profiles.TouchLastLogin(ctx, user.ID); err != nil {
		service.logger.Warn("oauth_last_login_stamp_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return service.sessions.establishSession(ctx, user, userAgent, ipAddress)
}

// fetchUserInfo retrieves the provider profile with the freshly minted token.
func (service *OAuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth_userinfo_request_failed: %w", err)
	}
	token.SetAuthHeader(request)

	response, err := service.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("oauth_userinfo_fetch_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return nil, fmt.Errorf("oauth_userinfo_status_%d: %s", response.StatusCode, string(body))
	}

	info := &googleUserInfo{}
	if err := json.NewDecoder(response.Body).Decode(info); err != nil {
		return nil, fmt.Errorf("oauth_userinfo_decode_failed: %w", err)
	}

	return info, nil
}

// provisionIdentity creates the identity and its profile for a first-time
// federated sign-in.
func (service *OAuthService) provisionIdentity(ctx context.Context, info *googleUserInfo) (*User, error) {
	// Random credential keeps the password grant unusable for this account.
	randomSecret, err := sec.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("oauth_service_secret_generation_failed: %w", err)
	}
	passwordHash, err := sec.HashPassword(randomSecret)
	if err != nil {
		return nil, fmt.Errorf("oauth_service_secret_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuidv7.New(),
		Email:        info.Email,
		PasswordHash: passwordHash,
		IsVerified:   info.VerifiedEmail,
	}

	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("oauth_service_identity_create_failed: %w", err)
	}

	if err := service.profiles.CreateDefault(ctx, user.ID, info.Email, info.Name); err != nil {
		return nil, fmt.Errorf("oauth_service_profile_seed_failed: %w", err)
	}

	return user, nil
}
