// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/progress"
	"github.com/tomtom215/tarkovtracker/internal/team"
	"github.com/tomtom215/tarkovtracker/internal/validation"
	ws "github.com/tomtom215/tarkovtracker/internal/websocket"
)

// teamView is the client-facing form of a team; the join hash stays private.
type teamView struct {
	ID        string    `json:"teamId"`
	Owner     string    `json:"owner"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

func newTeamView(t team.Team) teamView {
	return teamView{ID: t.ID, Owner: t.Owner, Members: t.Members, CreatedAt: t.CreatedAt}
}

type createTeamRequest struct {
	Password string `json:"password" validate:"omitempty,min=4,max=64"`
}

type joinTeamRequest struct {
	TeamID   string `json:"teamId" validate:"required,uuid"`
	Password string `json:"password" validate:"required,max=64"`
}

func writeTeamError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, team.ErrNotFound):
		rw.NotFound("Team not found")
	case errors.Is(err, team.ErrNotInTeam):
		rw.NotFound("You are not in a team")
	case errors.Is(err, team.ErrAlreadyInTeam):
		rw.Conflict("You are already in a team")
	case errors.Is(err, team.ErrTeamFull):
		rw.Conflict("Team is full")
	case errors.Is(err, team.ErrWrongPassword):
		rw.Forbidden("Wrong team password")
	default:
		rw.StorageError(err)
	}
}

// CreateTeam creates a team owned by the caller. The join password is only
// returned here.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.teams == nil {
		rw.ServiceUnavailable("Teams unavailable")
		return
	}

	var req createTeamRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	t, password, err := h.teams.Create(r.Context(), userID(r), req.Password)
	if err != nil {
		writeTeamError(rw, err)
		return
	}
	rw.Created(map[string]interface{}{
		"team":     newTeamView(t),
		"password": password,
	})
}

// JoinTeam adds the caller to a team.
func (h *Handler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.teams == nil {
		rw.ServiceUnavailable("Teams unavailable")
		return
	}

	var req joinTeamRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.teams.Join(r.Context(), userID(r), req.TeamID, req.Password)
	if err != nil {
		writeTeamError(rw, err)
		return
	}
	rw.Success(newTeamView(t))
}

// LeaveTeam removes the caller from their team. An owner leaving disbands it.
func (h *Handler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.teams == nil {
		rw.ServiceUnavailable("Teams unavailable")
		return
	}

	if err := h.teams.Leave(r.Context(), userID(r)); err != nil {
		writeTeamError(rw, err)
		return
	}
	rw.NoContent()
}

// GetTeam returns the caller's team.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.teams == nil {
		rw.ServiceUnavailable("Teams unavailable")
		return
	}

	t, err := h.teams.Get(r.Context(), userID(r))
	if err != nil {
		writeTeamError(rw, err)
		return
	}
	rw.Success(newTeamView(t))
}

// TeamProgress returns each teammate's progress for the requested game mode.
func (h *Handler) TeamProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.teams == nil || h.progress == nil {
		rw.ServiceUnavailable("Teams unavailable")
		return
	}

	gameMode := parseGameMode(r)
	if !validation.IsGameMode(gameMode) {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "gameMode must be one of regular, pve")
		return
	}
	mode := progress.StateMode(gameMode)

	mates, err := h.teams.Teammates(r.Context(), userID(r))
	if err != nil {
		writeTeamError(rw, err)
		return
	}

	out := make(map[string]progress.UserProgressData, len(mates))
	for _, id := range mates {
		state, err := h.progress.Peek(r.Context(), id)
		if err != nil {
			rw.StorageError(err)
			return
		}
		out[id] = *state.Mode(mode)
	}
	rw.Success(map[string]interface{}{
		"mode":      mode,
		"teammates": out,
	})
}

// TeamWebSocket upgrades to a stream of progress_updated and team_changed
// messages for the caller and their teammates.
func (h *Handler) TeamWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn, userID(r))
	if !h.wsHub.Attach(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}
