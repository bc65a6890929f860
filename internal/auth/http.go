// Copyright (c) 2026 Folio Works. All rights reserved.

package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/ctxutil"
	"github.com/folioworks/folio/internal/platform/respond"
	"github.com/folioworks/folio/internal/platform/validate"
)

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the account lifecycle entry
// points (registration, login, token refresh, password recovery, and the
// federated sign-in round-trip). It contains NO business logic or database
// queries.
type Handler struct {
	authService  *Service
	oauthService *OAuthService
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(service *Service, oauthService *OAuthService) *Handler {
	return &Handler{authService: service, oauthService: oauthService}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Parameters
//   - requireGuest: Middleware rejecting requests that already carry a valid token.
//   - requireAuth: Middleware rejecting anonymous requests.
//
// # Endpoints
//   - POST /register                 : Creates a new account (guest only).
//   - POST /login                    : Authenticates and returns a token pair (guest only).
//   - POST /logout                   : Revokes the presented refresh token.
//   - POST /refresh                  : Rotates a refresh token into a new pair.
//   - POST /reset-password           : Requests a password reset email.
//   - POST /reset-password/confirm   : Exchanges a reset token for a new password.
//   - PUT  /password                 : Changes the password (authenticated).
//   - GET  /oauth/{provider}          : Starts the provider consent round-trip (guest only).
//   - GET  /oauth/{provider}/callback : Finishes the round-trip and signs in.
func (handler *Handler) Routes(requireGuest, requireAuth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Group(func(guest chi.Router) {
		guest.Use(requireGuest)
		guest.Post("/register", handler.register)
		guest.Post("/login", handler.login)
		guest.Get("/oauth/{provider}", handler.oauthBegin)
	})

	router.Post("/logout", handler.logout)
	router.Post("/refresh", handler.refresh)
	router.Post("/reset-password", handler.resetPassword)
	router.Post("/reset-password/confirm", handler.confirmPasswordReset)
	router.Get("/oauth/{provider}/callback", handler.oauthCallback)

	router.Group(func(authed chi.Router) {
		authed.Use(requireAuth)
		authed.Put("/password", handler.updatePassword)
	})

	return router
}

// sessionPayload is the wire shape of an established session.
type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

func newSessionPayload(session *AuthSession) sessionPayload {
	return sessionPayload{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	}
}

// registerRequest represents the JSON payload expected for account creation.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// register handles POST /api/v1/auth/register requests.
//
// # Returns
//   - Writes HTTP 201 Created on success with the token pair and identity.
//   - Writes HTTP 400 Bad Request if validation rules fail.
//   - Writes HTTP 409 Conflict if the email is taken.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input registerRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation (Explicit & Mandatory) ────────────────────

	// Prevent malformed data from reaching the service layer.
	validator := validate.New().
		Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		MinLen("password", input.Password, 8).
		MaxLen("name", input.Name, 100)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		Name:      input.Name,
		UserAgent: request.UserAgent(),
		IPAddress: request.RemoteAddr,
	})

	// Service handles uniqueness checks and Bcrypt hashing. Domain errors
	// map to their HTTP status automatically inside the respond helper.
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.Created(writer, newSessionPayload(session))
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/v1/auth/login requests.
//
// # Returns
//   - Writes HTTP 200 OK on success with the token pair and identity.
//   - Writes HTTP 401 Unauthorized for bad credentials.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input loginRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	if input.Email == "" || input.Password == "" {
		respond.Error(writer, request, validate.RequiredError("email/password", "are required"))
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: request.RemoteAddr,
	})

	if err != nil {
		// HTTP 401 without leaking whether the email or the password was wrong.
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.OK(writer, newSessionPayload(session))
}

// refreshRequest carries the opaque refresh token for rotation and logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// logout handles POST /api/v1/auth/logout requests.
//
// Always answers HTTP 204: a missing or already-dead token still means the
// caller ends up signed out.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	// Decode failures are ignored on purpose; logout succeeds regardless.
	_ = json.NewDecoder(request.Body).Decode(&input)

	if input.RefreshToken != "" {
		_ = handler.authService.Logout(request.Context(), input.RefreshToken)
	}

	respond.NoContent(writer)
}

// refresh handles POST /api/v1/auth/refresh requests.
//
// # Returns
//   - Writes HTTP 200 OK with a freshly rotated token pair.
//   - Writes HTTP 401 Unauthorized if the refresh token is dead.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError("refresh_token", "is required"))
		return
	}

	session, err := handler.authService.RefreshSession(request.Context(), input.RefreshToken, request.UserAgent(), request.RemoteAddr)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newSessionPayload(session))
}

// resetPasswordRequest carries the account email for password recovery.
type resetPasswordRequest struct {
	Email string `json:"email"`
}

// resetPassword handles POST /api/v1/auth/reset-password requests.
//
// Always answers HTTP 202 for a well-formed email, whether or not an account
// exists, to block account enumeration.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := validate.New().
		Required("email", input.Email).
		Email("email", input.Email)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, respond.SuccessEnvelope{
		Data: map[string]string{"status": "reset_email_queued"},
	})
}

// confirmResetRequest carries the one-time token and the replacement password.
type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// confirmPasswordReset handles POST /api/v1/auth/reset-password/confirm requests.
func (handler *Handler) confirmPasswordReset(writer http.ResponseWriter, request *http.Request) {
	var input confirmResetRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := validate.New().
		Required("token", input.Token).
		Required("new_password", input.NewPassword).
		MinLen("new_password", input.NewPassword, 8)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.authService.ConfirmPasswordReset(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// updatePasswordRequest carries the replacement password for a signed-in user.
type updatePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// updatePassword handles PUT /api/v1/auth/password requests.
//
// Every other active session for this account is revoked on success, so the
// caller must sign in again on other devices.
func (handler *Handler) updatePassword(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	var input updatePasswordRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := validate.New().
		Required("new_password", input.NewPassword).
		MinLen("new_password", input.NewPassword, 8)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.authService.UpdatePassword(request.Context(), claims.UserID, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// resolveProvider maps the {provider} URL parameter onto a configured
// federated sign-in provider. Google is the only one wired today.
func (handler *Handler) resolveProvider(request *http.Request) error {
	if chi.URLParam(request, "provider") != ProviderGoogle {
		return apperr.NotFound("Unknown sign-in provider")
	}
	if !handler.oauthService.Enabled() {
		return apperr.NotFound("Federated sign-in is not configured")
	}
	return nil
}

// oauthBegin handles GET /api/v1/auth/oauth/{provider} requests.
//
// # Returns
//   - Writes HTTP 200 OK with the provider consent URL the client must visit.
//   - Writes HTTP 404 Not Found for unknown or unconfigured providers.
func (handler *Handler) oauthBegin(writer http.ResponseWriter, request *http.Request) {
	if err := handler.resolveProvider(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	consentURL, err := handler.oauthService.Begin(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"redirect_url": consentURL})
}

// oauthCallback handles GET /api/v1/auth/oauth/{provider}/callback requests.
//
// The provider redirects here with ?state=...&code=... query parameters.
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	if err := handler.resolveProvider(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	state := request.URL.Query().Get("state")
	code := request.URL.Query().Get("code")
	if state == "" || code == "" {
		respond.Error(writer, request, validate.RequiredError("state/code", "are required"))
		return
	}

	session, err := handler.oauthService.Callback(request.Context(), state, code, request.UserAgent(), request.RemoteAddr)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newSessionPayload(session))
}
