// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tarkovtracker/internal/progress"
	"github.com/tomtom215/tarkovtracker/internal/store"
	"github.com/tomtom215/tarkovtracker/internal/upstream"
	"github.com/tomtom215/tarkovtracker/internal/validation"
)

// progressPath is the validated form of the mode-scoped progress routes.
type progressPath struct {
	Mode   string `validate:"required,oneof=pvp pve"`
	TaskID string `validate:"omitempty,entityid"`
}

func isUpstreamError(err error) bool {
	var fetchErr *upstream.FetchError
	return errors.As(err, &fetchErr) || errors.Is(err, upstream.ErrCircuitOpen)
}

func (h *Handler) writeProgressError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrPreconditionFailed):
		rw.PreconditionFailed("Progress was changed by another session")
	case errors.Is(err, progress.ErrUnknownMode):
		rw.NotFound("Unknown game mode")
	case isUpstreamError(err):
		rw.ExternalServiceError("tarkov.dev", err)
	default:
		rw.StorageError(err)
	}
}

// GetProgress returns the caller's repaired progress with its ETag.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.progress == nil {
		rw.ServiceUnavailable("Progress storage unavailable")
		return
	}

	snap, err := h.progress.Load(r.Context(), userID(r))
	if err != nil {
		h.writeProgressError(rw, err)
		return
	}
	if snap.ETag != "" {
		w.Header().Set("ETag", snap.ETag)
	}
	rw.Success(snap)
}

// PutProgress merges the client's snapshot into stored progress. An
// If-Match header makes the write conditional on the stored ETag.
func (h *Handler) PutProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.progress == nil {
		rw.ServiceUnavailable("Progress storage unavailable")
		return
	}

	var state progress.UserState
	if !decodeJSON(w, r, &state) {
		return
	}
	if state.CurrentGameMode != "" && !progress.IsStateMode(state.CurrentGameMode) {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "currentGameMode must be one of pvp, pve")
		return
	}

	snap, err := h.progress.Save(r.Context(), userID(r), state, r.Header.Get("If-Match"))
	if err != nil {
		h.writeProgressError(rw, err)
		return
	}
	w.Header().Set("ETag", snap.ETag)
	rw.Success(snap)
}

// PatchTask applies a field-level task mutation. The write is debounced.
func (h *Handler) PatchTask(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.progress == nil {
		rw.ServiceUnavailable("Progress storage unavailable")
		return
	}

	path := progressPath{Mode: chi.URLParam(r, "mode"), TaskID: chi.URLParam(r, "taskId")}
	if path.TaskID == "" {
		rw.BadRequest("taskId is required")
		return
	}
	if verr := validation.ValidateStruct(&path); verr != nil {
		rw.ValidationError(verr)
		return
	}

	var upd progress.TaskUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	if upd.Complete == nil && upd.Failed == nil && upd.Manual == nil {
		rw.BadRequest("At least one of complete, failed, manual is required")
		return
	}

	state, err := h.progress.UpdateTask(r.Context(), userID(r), path.Mode, path.TaskID, upd)
	if err != nil {
		h.writeProgressError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{
		"mode":       path.Mode,
		"taskId":     path.TaskID,
		"completion": state.Mode(path.Mode).TaskCompletions[path.TaskID],
	})
}

// EnforceHideout removes hideout modules whose prerequisites are unmet.
func (h *Handler) EnforceHideout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.progress == nil {
		rw.ServiceUnavailable("Progress storage unavailable")
		return
	}

	path := progressPath{Mode: chi.URLParam(r, "mode")}
	if verr := validation.ValidateStruct(&path); verr != nil {
		rw.ValidationError(verr)
		return
	}

	removed, err := h.progress.EnforceHideout(r.Context(), userID(r), path.Mode)
	if err != nil {
		h.writeProgressError(rw, err)
		return
	}
	rw.Success(map[string]int{"removed": removed})
}

// GetPreferences returns the caller's stored preferences, or an empty
// object for a new user.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.preferences == nil {
		rw.ServiceUnavailable("Preference storage unavailable")
		return
	}

	row, etag, err := h.preferences.Get(r.Context(), userID(r))
	if errors.Is(err, store.ErrNotFound) {
		rw.Success(store.Row{})
		return
	}
	if err != nil {
		rw.StorageError(err)
		return
	}
	w.Header().Set("ETag", etag)
	rw.Success(row)
}

// PutPreferences replaces the caller's preferences.
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.preferences == nil {
		rw.ServiceUnavailable("Preference storage unavailable")
		return
	}

	var prefs store.Row
	if !decodeJSON(w, r, &prefs) {
		return
	}
	if prefs == nil {
		rw.BadRequest("Preferences must be a JSON object")
		return
	}

	row, etag, err := h.preferences.Upsert(r.Context(), userID(r), prefs, r.Header.Get("If-Match"))
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			rw.PreconditionFailed("Preferences were changed by another session")
			return
		}
		rw.StorageError(err)
		return
	}
	w.Header().Set("ETag", etag)
	rw.Success(row)
}
