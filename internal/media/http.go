// Copyright (c) 2026 Folio Works. All rights reserved.

package media

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/constants"
	"github.com/folioworks/folio/internal/platform/ctxutil"
	"github.com/folioworks/folio/internal/platform/respond"
	"github.com/folioworks/folio/internal/profile"
)

// AvatarSetter is the profile operation the avatar endpoint needs.
type AvatarSetter interface {
	SetAvatar(ctx context.Context, userID, avatarURL string) (*profile.Profile, error)
}

// Handler implements upload-related HTTP endpoints.
type Handler struct {
	mediaService *Service
	avatars      AvatarSetter
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(service *Service, avatars AvatarSetter) *Handler {
	return &Handler{mediaService: service, avatars: avatars}
}

// Routes returns a [chi.Router] configured with media-specific routes.
//
// # Endpoints
//   - POST /uploads : Stores a file and returns its public URL (authenticated).
//   - POST /avatar  : Stores a file and applies it as the caller's avatar
//     (authenticated).
func (handler *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Group(func(authed chi.Router) {
		authed.Use(requireAuth)
		authed.Post("/uploads", handler.upload)
		authed.Post("/avatar", handler.uploadAvatar)
	})

	return router
}

// extractFile pulls the "file" part out of the multipart form, enforcing the
// request-level size cap before any body is buffered.
func (handler *Handler) extractFile(writer http.ResponseWriter, request *http.Request) (UploadInput, func(), error) {
	request.Body = http.MaxBytesReader(writer, request.Body, constants.MaxUploadSize)

	file, header, err := request.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return UploadInput{}, nil, apperr.PayloadTooLarge("Uploaded file exceeds the size limit")
		}
		return UploadInput{}, nil, apperr.ValidationError("Multipart field 'file' is required")
	}

	input := UploadInput{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
	}
	return input, func() { file.Close() }, nil
}

// upload handles POST /api/v1/media/uploads requests.
//
// # Returns
//   - Writes HTTP 201 Created with the public URL of the stored file.
//   - Writes HTTP 400 Bad Request for a missing part or unsupported type.
//   - Writes HTTP 413 Payload Too Large above the size cap.
func (handler *Handler) upload(writer http.ResponseWriter, request *http.Request) {
	input, cleanup, err := handler.extractFile(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer cleanup()

	url, err := handler.mediaService.Upload(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]string{"url": url})
}

// uploadAvatar handles POST /api/v1/media/avatar requests.
//
// The file is stored like a plain upload and then applied as the caller's
// profile avatar in one step.
func (handler *Handler) uploadAvatar(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	input, cleanup, err := handler.extractFile(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer cleanup()

	url, err := handler.mediaService.Upload(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.avatars.SetAvatar(request.Context(), claims.UserID, url)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}
