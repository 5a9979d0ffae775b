// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/tarkovtracker/internal/auth"
	"github.com/tomtom215/tarkovtracker/internal/authprovider"
	"github.com/tomtom215/tarkovtracker/internal/config"
	"github.com/tomtom215/tarkovtracker/internal/edgecache"
	"github.com/tomtom215/tarkovtracker/internal/issues"
	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/progress"
	"github.com/tomtom215/tarkovtracker/internal/store"
	"github.com/tomtom215/tarkovtracker/internal/tarkovdata"
	"github.com/tomtom215/tarkovtracker/internal/team"
	"github.com/tomtom215/tarkovtracker/internal/upstream"
	"github.com/tomtom215/tarkovtracker/internal/validation"
	ws "github.com/tomtom215/tarkovtracker/internal/websocket"
)

// maxBodyBytes bounds JSON request bodies. Progress documents are the largest.
const maxBodyBytes = 2 << 20

// Dependencies are the services a Handler serves from. Nil optional
// services turn their endpoints into 503 responses.
type Dependencies struct {
	Config       *config.Config
	Data         *tarkovdata.Service
	Upstream     *upstream.Fetcher
	Cache        *edgecache.Cache
	Store        *store.DB
	Progress     *progress.Service
	Preferences  *store.Table
	Teams        *team.Service
	Hub          *ws.Hub
	Issues       *issues.Client
	AuthProvider *authprovider.Client
}

// Handler holds every dependency of the HTTP endpoints.
type Handler struct {
	config       *config.Config
	data         *tarkovdata.Service
	upstream     *upstream.Fetcher
	cache        *edgecache.Cache
	db           *store.DB
	progress     *progress.Service
	preferences  *store.Table
	teams        *team.Service
	wsHub        *ws.Hub
	issues       *issues.Client
	authProvider *authprovider.Client
	startTime    time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		config:       deps.Config,
		data:         deps.Data,
		upstream:     deps.Upstream,
		cache:        deps.Cache,
		db:           deps.Store,
		progress:     deps.Progress,
		preferences:  deps.Preferences,
		teams:        deps.Teams,
		wsHub:        deps.Hub,
		issues:       deps.Issues,
		authProvider: deps.AuthProvider,
		startTime:    time.Now(),
	}
}

// decodeJSON reads a bounded JSON body into v and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body too large")
			return false
		}
		WriteBadRequest(w, r, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		WriteBadRequest(w, r, "Invalid JSON request body")
		return false
	}
	return true
}

// decodeAndValidate decodes a JSON body and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		NewResponseWriter(w, r).ValidationError(verr)
		return false
	}
	return true
}

// userID returns the authenticated user. Routes using it sit behind
// auth.Middleware.RequireAuth.
func userID(r *http.Request) string {
	return auth.UserID(r.Context())
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin; accepting an empty one would bypass CORS.
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Ctx(r.Context()).Warn().Str("origin", logging.SanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
