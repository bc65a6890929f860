// Copyright (c) 2026 Folio Works. All rights reserved.

package post

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/ctxutil"
	"github.com/folioworks/folio/internal/platform/respond"
	"github.com/folioworks/folio/internal/platform/sec"
	"github.com/folioworks/folio/internal/platform/validate"
	"github.com/folioworks/folio/pkg/pagination"
	"github.com/folioworks/folio/pkg/query"
)

// Handler implements content-related HTTP endpoints.
type Handler struct {
	postService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{postService: service}
}

// Routes returns a [chi.Router] configured with content-specific routes.
//
// # Endpoints
//   - GET    /           : Public listing, newest first, paginated (?tags=).
//   - GET    /search     : Public full-text-ish search (?q=).
//   - GET    /mine       : The caller's own posts (authenticated).
//   - GET    /dashboard  : The caller's aggregates (authenticated).
//   - POST   /           : Authors a new post (authenticated).
//   - GET    /{id}       : Single post read; counts a view.
//   - PATCH  /{id}       : Partial edit, owner or admin.
//   - DELETE /{id}       : Removal, owner or admin.
func (handler *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listPublic)
	router.Get("/search", handler.search)
	router.Get("/{id}", handler.get)

	router.Group(func(authed chi.Router) {
		authed.Use(requireAuth)
		authed.Get("/mine", handler.listOwn)
		authed.Get("/dashboard", handler.dashboard)
		authed.Post("/", handler.create)
		authed.Patch("/{id}", handler.update)
		authed.Delete("/{id}", handler.remove)
	})

	return router
}

// viewer unpacks the optional auth claims into the service's viewer arguments.
func viewer(claims *sec.AuthClaims) (*auth.UserRole, string) {
	if claims == nil {
		return nil, ""
	}
	role := auth.UserRole(claims.Role)
	return &role, claims.UserID
}

// listPublic handles GET /api/v1/posts requests. An optional ?tags=a,b
// parameter narrows the feed to posts carrying any of the listed tags.
func (handler *Handler) listPublic(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	tags := query.StringSlice(request.URL.Query().Get("tags"))

	posts, meta, err := handler.postService.ListPublic(request.Context(), params, tags)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, posts, meta)
}

// search handles GET /api/v1/posts/search requests.
//
// # Returns
//   - Writes HTTP 200 OK with the matching public posts (empty for a blank query).
func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query().Get("q")

	results, err := handler.postService.Search(request.Context(), query)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, results)
}

// get handles GET /api/v1/posts/{id} requests.
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")

	validator := validate.New().UUID("id", id)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	role, viewerID := viewer(ctxutil.GetAuthUser(request.Context()))
	record, err := handler.postService.Get(request.Context(), id, role, viewerID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

// createRequest represents the JSON payload for authoring a post.
type createRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	IsPublic *bool    `json:"is_public"`
}

// create handles POST /api/v1/posts requests.
//
// # Returns
//   - Writes HTTP 201 Created with the authored post.
//   - Writes HTTP 400 Bad Request if validation rules fail.
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input createRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := validate.New().
		Required("title", input.Title).
		MaxLen("title", input.Title, 300).
		Required("content", input.Content)
	for _, tag := range input.Tags {
		validator.Required("tags", tag).MaxLen("tags", tag, 50)
	}
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	record, err := handler.postService.Create(request.Context(), claims.UserID, CreateInput{
		Title:    input.Title,
		Content:  input.Content,
		Tags:     input.Tags,
		IsPublic: input.IsPublic,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.Created(writer, record)
}

// listOwn handles GET /api/v1/posts/mine requests.
func (handler *Handler) listOwn(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	posts, err := handler.postService.ListOwn(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, posts)
}

// dashboard handles GET /api/v1/posts/dashboard requests.
func (handler *Handler) dashboard(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	stats, err := handler.postService.GetDashboard(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stats)
}

// updateRequest represents the JSON payload for a partial post edit.
// Absent fields are left untouched; an empty tags array clears the tags.
type updateRequest struct {
	Title    *string  `json:"title"`
	Content  *string  `json:"content"`
	Tags     []string `json:"tags"`
	IsPublic *bool    `json:"is_public"`
}

// update handles PATCH /api/v1/posts/{id} requests.
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	id := chi.URLParam(request, "id")

	var input updateRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := validate.New().UUID("id", id)
	if input.Title != nil {
		validator.Required("title", *input.Title).MaxLen("title", *input.Title, 300)
	}
	if input.Content != nil {
		validator.Required("content", *input.Content)
	}
	for _, tag := range input.Tags {
		validator.Required("tags", tag).MaxLen("tags", tag, 50)
	}
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	role, viewerID := viewer(claims)
	record, err := handler.postService.Update(request.Context(), id, UpdateInput{
		Title:    input.Title,
		Content:  input.Content,
		Tags:     input.Tags,
		IsPublic: input.IsPublic,
	}, role, viewerID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

// remove handles DELETE /api/v1/posts/{id} requests.
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	id := chi.URLParam(request, "id")
	validator := validate.New().UUID("id", id)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	role, viewerID := viewer(claims)
	if err := handler.postService.Delete(request.Context(), id, role, viewerID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
