// Copyright (c) 2026 Folio Works. All rights reserved.

package profile

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/ctxutil"
	"github.com/folioworks/folio/internal/platform/respond"
	"github.com/folioworks/folio/internal/platform/validate"
	"github.com/folioworks/folio/pkg/pointer"
)

// Handler implements profile-related HTTP endpoints.
type Handler struct {
	profileService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{profileService: service}
}

// Routes returns a [chi.Router] configured with profile-specific routes.
//
// # Endpoints
//   - GET   /me   : Returns the caller's full profile (authenticated).
//   - PATCH /me   : Partially edits the caller's profile (authenticated).
//   - GET   /{id} : Returns any member's public profile.
func (handler *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Group(func(authed chi.Router) {
		authed.Use(requireAuth)
		authed.Get("/me", handler.getOwn)
		authed.Patch("/me", handler.updateOwn)
	})

	router.Get("/{id}", handler.get)

	return router
}

// getOwn handles GET /api/v1/profiles/me requests.
func (handler *Handler) getOwn(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	record, err := handler.profileService.Get(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

// updateRequest represents the JSON payload for a partial profile edit.
// Absent fields are left untouched.
type updateRequest struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
	Website  *string `json:"website"`
}

// updateOwn handles PATCH /api/v1/profiles/me requests.
//
// # Returns
//   - Writes HTTP 200 OK with the profile as persisted after the edit.
//   - Writes HTTP 400 Bad Request if validation rules fail.
func (handler *Handler) updateOwn(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input updateRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := validate.New().
		MaxLen("name", pointer.Val(input.Name), 100).
		MaxLen("bio", pointer.Val(input.Bio), 2000).
		MaxLen("location", pointer.Val(input.Location), 200).
		URL("website", pointer.Val(input.Website))
	if input.Name != nil {
		validator.Required("name", *input.Name)
	}
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	record, err := handler.profileService.Update(request.Context(), claims.UserID, UpdateInput{
		Name:     input.Name,
		Bio:      input.Bio,
		Location: input.Location,
		Website:  input.Website,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.OK(writer, record)
}

// get handles GET /api/v1/profiles/{id} requests.
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")

	validator := validate.New().UUID("id", id)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	record, err := handler.profileService.Get(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}
