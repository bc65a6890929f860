// Copyright (c) 2026 Folio Works. All rights reserved.

package realtime

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/ctxutil"
	"github.com/folioworks/folio/internal/platform/respond"
)

// Handler implements the websocket upgrade endpoint.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler constructs a new [Handler].
//
// # Parameters
//   - checkOrigin: Origin allowlist check, shared with the CORS middleware.
//     The browser's CORS machinery does not cover websocket upgrades, so the
//     check is enforced here explicitly.
func NewHandler(hub *Hub, checkOrigin func(request *http.Request) bool, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Routes returns a [chi.Router] configured with the realtime routes.
//
// # Endpoints
//   - GET /posts : Upgrades to a websocket streaming the caller's own post
//     change events (authenticated).
func (handler *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Group(func(authed chi.Router) {
		authed.Use(requireAuth)
		authed.Get("/posts", handler.subscribePosts)
	})

	return router
}

// subscribePosts handles GET /api/v1/realtime/posts requests.
//
// Each event on the stream is one JSON-encoded post change for a post owned
// by the caller. Closing the socket releases the subscription; nothing is
// buffered for disconnected clients.
func (handler *Handler) subscribePosts(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	conn, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		handler.logger.Debug("realtime_upgrade_failed", slog.Any("error", err))
		return
	}

	if _, err := handler.hub.Register(claims.UserID, conn); err != nil {
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "capacity reached")
		_ = conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
}
